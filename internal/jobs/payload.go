package jobs

import "encoding/json"

// TypeReportProcess is the job type for the document report pipeline.
const TypeReportProcess = "report_process"

type ReportProcessPayload struct {
	ReportID       uint   `json:"report_id"`
	OwnerID        uint   `json:"owner_id"`
	StoredFilePath string `json:"stored_file_path"`
}

func MarshalReportProcessPayload(reportID, ownerID uint, storedFilePath string) ([]byte, error) {
	return json.Marshal(ReportProcessPayload{
		ReportID:       reportID,
		OwnerID:        ownerID,
		StoredFilePath: storedFilePath,
	})
}
