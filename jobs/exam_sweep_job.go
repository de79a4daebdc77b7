package jobs

import (
	"log"

	"github.com/somework06-coder/LMS-SEKOLAH-sub001/services"
)

type ExamSweepJob struct {
	Service *services.ExamService
}

func NewExamSweepJob(service *services.ExamService) *ExamSweepJob {
	return &ExamSweepJob{Service: service}
}

func (j *ExamSweepJob) Run() {
	log.Println("Running job: SweepExpiredExamAttempts...")

	closed, err := j.Service.SweepAllExpired()
	if err != nil {
		log.Printf("Error sweeping expired exam attempts: %v", err)
		return
	}

	if closed == 0 {
		log.Println("No expired exam attempts found.")
		return
	}

	log.Printf("Closed %d expired exam attempt(s).", closed)
}
