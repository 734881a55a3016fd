package mappers

import (
	"encoding/json"

	api "github.com/archivemind/insight-api/api/v1alpha1"
	"github.com/archivemind/insight-api/internal/store/model"
)

func JobToApi(j model.Job) api.Job {
	job := api.Job{
		Id:         j.ID,
		Kind:       j.Kind,
		State:      j.State,
		Phase:      j.Phase,
		Error:      j.Error,
		ErrorType:  j.ErrorType,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}

	if len(j.Params) > 0 {
		_ = json.Unmarshal(j.Params, &job.Params)
	}
	if len(j.Stats) > 0 {
		_ = json.Unmarshal(j.Stats, &job.Stats)
	}
	if len(j.Cost) > 0 {
		_ = json.Unmarshal(j.Cost, &job.Cost)
	}
	if len(j.Result) > 0 {
		job.Result = json.RawMessage(j.Result)
	}

	return job
}

func JobListToApi(jobs model.JobList) api.JobList {
	out := make(api.JobList, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobToApi(j))
	}
	return out
}
