package mappers

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/archivemind/insight-api/internal/store/model"
	"github.com/google/uuid"
)

// subcommand accepted by the worker binary, per job kind
var workerSubcommands = map[string]string{
	"search":      "search",
	"enrichment":  "enrich",
	"graph-index": "graph-index",
}

type JobCreateForm struct {
	Kind   string
	Params map[string]string
}

func (f JobCreateForm) ToJob(id uuid.UUID) model.Job {
	var params []byte
	if len(f.Params) > 0 {
		params, _ = json.Marshal(f.Params)
	}
	return model.Job{
		ID:        id,
		Kind:      f.Kind,
		State:     model.JobStateRunning,
		Params:    params,
		StartedAt: time.Now(),
	}
}

// WorkerArgs maps the form to the worker's command line: the kind's
// subcommand followed by one --flag value pair per param, in a stable order.
func (f JobCreateForm) WorkerArgs() []string {
	args := []string{workerSubcommands[f.Kind]}

	keys := make([]string, 0, len(f.Params))
	for k := range f.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, "--"+k, f.Params[k])
	}
	return args
}

func IsValidJobKind(kind string) bool {
	_, ok := workerSubcommands[kind]
	return ok
}
