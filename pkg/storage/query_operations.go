package storage

import (
	"fmt"

	"github.com/mdbase/mdbase/pkg/domain"
	"github.com/mdbase/mdbase/pkg/query"
)

// Query plans and executes a query request against the engine.
//
// No engine-wide lock is taken: the executor reads documents through List
// and Get, which lock internally, so read queries run concurrently with
// each other. Callers serialize mutations externally per the single-writer
// model.
func (e *Engine) Query(req *query.Request) ([]domain.Document, error) {
	if _, err := e.GetCollection(req.Collection); err != nil {
		return nil, err
	}
	plan := e.planner.Plan(req)
	docs, err := e.executor.Run(plan)
	if err != nil {
		return nil, fmt.Errorf("query on %s failed: %w", req.Collection, err)
	}
	return docs, nil
}

// Explain plans a request and returns the plan tree without executing it.
func (e *Engine) Explain(req *query.Request) (*query.PlanDesc, error) {
	if _, err := e.GetCollection(req.Collection); err != nil {
		return nil, err
	}
	return e.planner.Plan(req).Describe(), nil
}
