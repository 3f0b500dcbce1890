package sqlite

import (
	"time"

	"github.com/anvorisk/queuectl/job"
	"github.com/uptrace/bun"
)

type jobModel struct {
	bun.BaseModel `bun:"table:jobs"`

	Id         string     `bun:"id,pk"`
	Command    string     `bun:"command,notnull"`
	Status     job.Status `bun:"status,type:text,notnull"`
	Attempts   uint32     `bun:"attempts,notnull,default:0"`
	MaxRetries uint32     `bun:"max_retries,notnull"`
	Priority   int        `bun:"priority,notnull,default:0"`
	TimeoutSec int64      `bun:"timeout_sec,notnull"`

	RunAt *time.Time `bun:"run_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

func (jm *jobModel) toJob() *job.Job {
	return &job.Job{
		Id:          jm.Id,
		Command:     jm.Command,
		Status:      jm.Status,
		Attempts:    jm.Attempts,
		MaxRetries:  jm.MaxRetries,
		Priority:    jm.Priority,
		Timeout:     time.Duration(jm.TimeoutSec) * time.Second,
		RunAt:       jm.RunAt,
		CreatedAt:   jm.CreatedAt,
		UpdatedAt:   jm.UpdatedAt,
		StartedAt:   jm.StartedAt,
		CompletedAt: jm.CompletedAt,
	}
}

func jobsToJobs(models []*jobModel) []*job.Job {
	ret := make([]*job.Job, len(models))
	for i, m := range models {
		ret[i] = m.toJob()
	}
	return ret
}

type configModel struct {
	bun.BaseModel `bun:"table:config"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}
