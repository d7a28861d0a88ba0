package cron

import (
	"context"
	"fmt"

	"github.com/fundexplorer/datakit/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// sequenceJob runs a chain's tasks in order, stopping at the first failure.
type sequenceJob struct {
	name   string
	tasks  []Task
	logger logger.Logger
}

func (j *sequenceJob) Run() {
	ctx := context.Background()
	for _, task := range j.tasks {
		if err := task.Run(ctx); err != nil {
			j.logger.Error("chain aborted",
				zap.String("chain", j.name),
				zap.String("task", task.Name()),
				zap.Error(err),
			)
			return
		}
	}
}

type manager struct {
	cron        *cron.Cron
	middlewares []Middleware
	logger      logger.Logger
}

func newManager(log logger.Logger, mws ...Middleware) *manager {
	return &manager{
		cron:        cron.New(cron.WithSeconds()),
		middlewares: mws,
		logger:      log,
	}
}

func (m *manager) Start() {
	m.cron.Start()
}

func (m *manager) Close() {
	<-m.cron.Stop().Done()
}

func (m *manager) AddChain(chain Chain) error {
	if len(chain.Tasks) == 0 {
		return ErrNoTasks
	}

	wrapped := make([]Task, len(chain.Tasks))
	for i, task := range chain.Tasks {
		named := TaskFunc(fmt.Sprintf("%s:%s", chain.Name, task.Name()), task.Run)
		wrapped[i] = applyMiddlewares(named, m.middlewares...)
	}

	job := &sequenceJob{name: chain.Name, tasks: wrapped, logger: m.logger}
	if _, err := m.cron.AddJob(chain.Spec, job); err != nil {
		return ErrAddChain(chain.Name, chain.Spec, err)
	}

	m.logger.Info("chain scheduled",
		zap.String("chain", chain.Name),
		zap.String("spec", chain.Spec),
		zap.Int("tasks", len(chain.Tasks)),
	)
	return nil
}
