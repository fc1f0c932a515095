package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/dshills/flowsim/graph"
	"github.com/dshills/flowsim/graph/codec"
	"github.com/dshills/flowsim/graph/store"
)

// OrderResponse is the body returned by POST /order.
type OrderResponse struct {
	Order      []string `json:"order"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// WorkflowSummary is one entry of GET /workflows.
type WorkflowSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RunSummary is one entry of GET /workflows/:id/runs.
type RunSummary struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId,omitempty"`
	Success    bool      `json:"success"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Server) document(c fiber.Ctx) (codec.Document, error) {
	doc, err := codec.Deserialize(c.Body())
	if err != nil {
		return codec.Document{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return doc, nil
}

func (s *Server) listAutomations(c fiber.Ctx) error {
	if s.catalog == nil {
		return c.JSON([]graph.Automation{})
	}
	list, err := s.catalog.Fetch(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) validate(c fiber.Ctx) error {
	doc, err := s.document(c)
	if err != nil {
		return err
	}
	result := graph.Validator{Catalog: s.catalog}.Validate(c.Context(), doc.Nodes, doc.Edges)
	return c.JSON(result)
}

func (s *Server) order(c fiber.Ctx) error {
	doc, err := s.document(c)
	if err != nil {
		return err
	}
	nodes, err := graph.ResolveOrder(doc.Nodes, doc.Edges)
	resp := OrderResponse{Order: make([]string, 0, len(nodes))}
	for _, n := range nodes {
		resp.Order = append(resp.Order, n.ID)
	}
	var oe *graph.OrderError
	if errors.As(err, &oe) {
		resp.Unresolved = oe.Unresolved
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}
	return c.JSON(resp)
}

func (s *Server) simulate(c fiber.Ctx) error {
	doc, err := s.document(c)
	if err != nil {
		return err
	}
	return s.run(c, "", doc)
}

func (s *Server) simulateSaved(c fiber.Ctx) error {
	id := c.Params("id")
	doc, err := store.GetDocument(c.Context(), s.store, id)
	if err != nil {
		return err
	}
	return s.run(c, id, doc)
}

// run simulates doc and stores the result. Invalid graphs are answered with
// 422 and the validation payload; they are not stored.
func (s *Server) run(c fiber.Ctx, workflowID string, doc codec.Document) error {
	runner, err := graph.NewRunner(s.opts...)
	if err != nil {
		return err
	}
	result := runner.Run(c.Context(), doc.Nodes, doc.Edges, nil)
	if result.Validation != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}
	if _, err := store.PutRun(c.Context(), s.store, workflowID, result); err != nil {
		return err
	}
	s.logger.Info("simulation finished", "run_id", result.RunID, "workflow_id", workflowID,
		"success", result.Success, "steps", len(result.Steps))
	return c.JSON(result)
}

func (s *Server) saveWorkflow(c fiber.Ctx) error {
	doc, err := s.document(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	status := fiber.StatusCreated
	if id != "" {
		status = fiber.StatusOK
	}
	rec, err := store.PutDocument(c.Context(), s.store, id, doc)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(summarize(rec))
}

func (s *Server) listWorkflows(c fiber.Ctx) error {
	recs, err := s.store.ListWorkflows(c.Context())
	if err != nil {
		return err
	}
	out := make([]WorkflowSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, summarize(r))
	}
	return c.JSON(out)
}

func (s *Server) getWorkflow(c fiber.Ctx) error {
	doc, err := store.GetDocument(c.Context(), s.store, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

func (s *Server) deleteWorkflow(c fiber.Ctx) error {
	if err := s.store.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.store.LoadWorkflow(c.Context(), id); err != nil {
		return err
	}
	recs, err := s.store.ListRuns(c.Context(), id)
	if err != nil {
		return err
	}
	out := make([]RunSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, RunSummary{ID: r.ID, WorkflowID: r.WorkflowID, Success: r.Success, CreatedAt: r.CreatedAt})
	}
	return c.JSON(out)
}

func (s *Server) getRun(c fiber.Ctx) error {
	result, err := store.GetRun(c.Context(), s.store, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func summarize(r store.WorkflowRecord) WorkflowSummary {
	return WorkflowSummary{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
