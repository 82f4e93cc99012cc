package db

import (
	"github.com/sjwg/reporter-backend/internal/domain"
)

func (s *Service) AutoMigrateAll() error {
	return s.db.AutoMigrate(

		// Identity
		&domain.User{},

		// Reports (the record store polled by clients)
		&domain.Report{},

		// Durable job queue
		&domain.JobRun{},
	)
}
