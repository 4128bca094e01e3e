package dataset_profile

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

	jc.Progress("profile", fmt.Sprintf("dataset %d", datasetID))
	prof, err := p.datasets.Profile(jc.Ctx, datasetID)
	if err != nil {
		jc.Fail("profile", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"dataset_id":   datasetID,
		"profile_id":   prof.ID,
		"row_count":    prof.RowCount,
		"column_count": prof.ColumnCount,
	})
	return nil
}
