package dataset_validate

import (
	"fmt"

	jobrt "github.com/yungbote/tagledger-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	datasetID, ok := jc.TargetID("dataset_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing dataset_id"))
		return nil
	}

	jc.Progress("validate", fmt.Sprintf("dataset %d", datasetID))
	res, err := p.datasets.Validate(jc.Ctx, datasetID)
	if err != nil {
		jc.Fail("validate", err)
		return nil
	}
	if !res.Report.Valid {
		jc.Fail("validate", fmt.Errorf("dataset %d has %d validation errors", datasetID, len(res.Report.Errors)))
		return nil
	}

	jc.Succeed("done", map[string]any{
		"dataset_id":  datasetID,
		"status":      res.Dataset.Status,
		"num_records": res.Dataset.NumRecords,
		"warnings":    len(res.Report.Warnings),
	})
	return nil
}
