package runtimewire

import (
	"context"

	"github.com/google/uuid"

	"github.com/Gurpartap/jiraagent/agent"
)

type uuidGenerator struct{}

func (uuidGenerator) NewRunID(_ context.Context) (agent.RunID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return agent.RunID(id.String()), nil
}
