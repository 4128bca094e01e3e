package ml_training

import (
	"fmt"

	domainml "github.com/yungbote/tagledger-backend/internal/domain/mlops"
	jobrt "github.com/yungbote/tagledger-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	versionID, ok := jc.TargetID("model_version_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing model_version_id"))
		return nil
	}

	jc.Progress("train", fmt.Sprintf("model version %d", versionID))
	v, err := p.mlops.Train(jc.Ctx, versionID)
	if err != nil {
		jc.Fail("train", err)
		return nil
	}
	if v.Status == domainml.VersionStatusFailed {
		jc.Fail("train", fmt.Errorf("model version %d failed to train", v.ID))
		return nil
	}

	jc.Succeed("done", map[string]any{
		"model_version_id": v.ID,
		"status":           v.Status,
		"artifact_path":    v.ArtifactPath,
	})
	return nil
}
