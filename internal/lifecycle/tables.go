package lifecycle

import (
	domainanalysis "github.com/yungbote/tagledger-backend/internal/domain/analysis"
	"github.com/yungbote/tagledger-backend/internal/domain/catalog"
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	domainml "github.com/yungbote/tagledger-backend/internal/domain/mlops"
)

const (
	KindDataset      = "dataset"
	KindAnalysisRun  = "analysis_run"
	KindModelVersion = "ml_model_version"
	KindTrainingRun  = "ml_training_run"
	KindJob          = "job"
)

// edges maps entity kind -> current status -> allowed next statuses.
// A status present with no outgoing edges is terminal.
var edges = map[string]map[string][]string{
	KindDataset: {
		catalog.DatasetStatusRegistered: {catalog.DatasetStatusValidated, catalog.DatasetStatusFailed},
		catalog.DatasetStatusValidated:  {catalog.DatasetStatusProfiled, catalog.DatasetStatusFailed},
		catalog.DatasetStatusProfiled:   nil,
		catalog.DatasetStatusFailed:     nil,
	},
	KindAnalysisRun: {
		domainanalysis.RunStatusPending:   {domainanalysis.RunStatusRunning, domainanalysis.RunStatusFailed},
		domainanalysis.RunStatusRunning:   {domainanalysis.RunStatusCompleted, domainanalysis.RunStatusFailed},
		domainanalysis.RunStatusCompleted: nil,
		domainanalysis.RunStatusFailed:    nil,
	},
	KindTrainingRun: {
		domainml.TrainingStatusPending:   {domainml.TrainingStatusRunning, domainml.TrainingStatusFailed},
		domainml.TrainingStatusRunning:   {domainml.TrainingStatusCompleted, domainml.TrainingStatusFailed},
		domainml.TrainingStatusCompleted: nil,
		domainml.TrainingStatusFailed:    nil,
	},
	KindModelVersion: {
		domainml.VersionStatusDraft:    {domainml.VersionStatusTrained, domainml.VersionStatusFailed},
		domainml.VersionStatusTrained:  {domainml.VersionStatusDeployed, domainml.VersionStatusFailed},
		domainml.VersionStatusDeployed: nil,
		domainml.VersionStatusFailed:   nil,
	},
	KindJob: {
		domainjobs.StatusQueued:    {domainjobs.StatusRunning, domainjobs.StatusFailed},
		domainjobs.StatusRunning:   {domainjobs.StatusCompleted, domainjobs.StatusFailed},
		domainjobs.StatusCompleted: nil,
		domainjobs.StatusFailed:    nil,
	},
}

// initial is the status every new row of a kind starts in.
var initial = map[string]string{
	KindDataset:      catalog.DatasetStatusRegistered,
	KindAnalysisRun:  domainanalysis.RunStatusPending,
	KindTrainingRun:  domainml.TrainingStatusPending,
	KindModelVersion: domainml.VersionStatusDraft,
	KindJob:          domainjobs.StatusQueued,
}

// Kinds returns every entity kind that carries a status machine.
func Kinds() []string {
	return []string{KindDataset, KindAnalysisRun, KindTrainingRun, KindModelVersion, KindJob}
}

func Initial(kind string) string { return initial[kind] }

// Statuses lists the known statuses of kind, or nil for an unknown kind.
func Statuses(kind string) []string {
	t, ok := edges[kind]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t))
	for s := range t {
		out = append(out, s)
	}
	return out
}

func Allowed(kind, from string) []string {
	return edges[kind][from]
}

func CanTransition(kind, from, to string) bool {
	for _, s := range edges[kind][from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal is true for known statuses with no way out.
func IsTerminal(kind, status string) bool {
	t, ok := edges[kind]
	if !ok {
		return false
	}
	next, known := t[status]
	return known && len(next) == 0
}

func knownStatus(kind, status string) bool {
	_, ok := edges[kind][status]
	return ok
}
