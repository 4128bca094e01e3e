package analysis_run

import (
	"fmt"

	domainanalysis "github.com/yungbote/tagledger-backend/internal/domain/analysis"
	jobrt "github.com/yungbote/tagledger-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	runID, ok := jc.TargetID("analysis_run_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing analysis_run_id"))
		return nil
	}

	jc.Progress("execute", fmt.Sprintf("analysis run %d", runID))
	run, err := p.analysis.Execute(jc.Ctx, runID)
	if err != nil {
		jc.Fail("execute", err)
		return nil
	}
	if run.Status == domainanalysis.RunStatusFailed {
		jc.Fail("execute", fmt.Errorf("analysis run %d failed: %s", run.ID, run.Error))
		return nil
	}

	jc.Succeed("done", map[string]any{
		"analysis_run_id": run.ID,
		"status":          run.Status,
	})
	return nil
}
