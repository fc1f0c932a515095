package graph

import (
	"context"
	"fmt"
	"strings"
)

// Severity distinguishes blocking issues from informational ones.
type Severity string

// Issue severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes reported by the validator.
const (
	CodeEmptyWorkflow       = "EMPTY_WORKFLOW"
	CodeNoStartNode         = "NO_START_NODE"
	CodeMultipleStartNodes  = "MULTIPLE_START_NODES"
	CodeNoEndNode           = "NO_END_NODE"
	CodeStartHasIncoming    = "START_HAS_INCOMING"
	CodeEndHasOutgoing      = "END_HAS_OUTGOING"
	CodeOrphanNodes         = "ORPHAN_NODES"
	CodeCircularDependency  = "CIRCULAR_DEPENDENCY"
	CodeDeadEnd             = "DEAD_END"
	CodeUnreachable         = "UNREACHABLE"
	CodeMissingTitle        = "MISSING_TITLE"
	CodeMissingAssignee     = "MISSING_ASSIGNEE"
	CodeMissingApproverRole = "MISSING_APPROVER_ROLE"
	CodeInvalidApproverRole = "INVALID_APPROVER_ROLE"
	CodeInvalidThreshold    = "INVALID_AUTO_APPROVE_THRESHOLD"
	CodeMissingAction       = "MISSING_ACTION"
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeMissingParameter    = "MISSING_PARAMETER"
)

// Issue is a single validation finding. Issues are values, never errors:
// the caller decides whether to proceed.
type Issue struct {
	Type    Severity `json:"type"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	NodeID  string   `json:"nodeId,omitempty"`
	NodeIDs []string `json:"nodeIds,omitempty"`
}

// Result is the outcome of validating a workflow graph.
type Result struct {
	IsValid  bool    `json:"isValid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// HasCode reports whether any error or warning carries code.
func (r Result) HasCode(code string) bool {
	for _, list := range [][]Issue{r.Errors, r.Warnings} {
		for _, issue := range list {
			if issue.Code == code {
				return true
			}
		}
	}
	return false
}

// Summary joins the blocking issue messages into one line.
func (r Result) Summary() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, issue := range r.Errors {
		msgs[i] = issue.Message
	}
	return strings.Join(msgs, "; ")
}

// Validator checks a workflow graph for structural well-formedness and
// per-node required fields.
//
// The zero value is usable. When Catalog is set, automated nodes are also
// checked against it: unknown action ids are errors and empty required
// parameters are warnings.
type Validator struct {
	Catalog Catalog
}

// Validate runs the structural checks with no catalog.
func Validate(nodes []Node, edges []Edge) Result {
	return Validator{}.Validate(context.Background(), nodes, edges)
}

// Validate checks nodes and edges. Every check runs and all findings are
// accumulated, except that an empty graph returns immediately.
func (v Validator) Validate(ctx context.Context, nodes []Node, edges []Edge) Result {
	r := &Result{Errors: []Issue{}, Warnings: []Issue{}}

	if len(nodes) == 0 {
		r.addError(Issue{Code: CodeEmptyWorkflow, Message: "Workflow must have at least one node"})
		r.IsValid = false
		return *r
	}

	var starts, ends []Node
	for _, n := range nodes {
		switch n.Type {
		case NodeStart:
			starts = append(starts, n)
		case NodeEnd:
			ends = append(ends, n)
		}
	}

	switch {
	case len(starts) == 0:
		r.addError(Issue{Code: CodeNoStartNode, Message: "Workflow must have exactly one Start node"})
	case len(starts) > 1:
		r.addError(Issue{
			Code:    CodeMultipleStartNodes,
			Message: fmt.Sprintf("Workflow has %d Start nodes, but only one is allowed", len(starts)),
			NodeIDs: nodeIDs(starts),
		})
	}
	if len(ends) == 0 {
		r.addError(Issue{Code: CodeNoEndNode, Message: "Workflow must have at least one End node"})
	}

	adj := buildAdjacency(nodes, edges)

	for _, s := range starts {
		if len(adj.in[s.ID]) > 0 {
			r.addError(Issue{Code: CodeStartHasIncoming, Message: "Start node cannot have incoming connections", NodeID: s.ID})
		}
	}
	for _, e := range ends {
		if len(adj.out[e.ID]) > 0 {
			r.addError(Issue{Code: CodeEndHasOutgoing, Message: "End node cannot have outgoing connections", NodeID: e.ID})
		}
	}

	visited := reachable(nodeIDs(starts), adj)
	var orphans []string
	for _, n := range nodes {
		if n.Type != NodeStart && !visited[n.ID] {
			orphans = append(orphans, n.ID)
		}
	}
	if len(orphans) > 0 {
		r.addError(Issue{
			Code:    CodeOrphanNodes,
			Message: fmt.Sprintf("%d node(s) are not reachable from the Start node", len(orphans)),
			NodeIDs: orphans,
		})
	}

	if hasCycle(nodes, adj) {
		r.addError(Issue{Code: CodeCircularDependency, Message: "Workflow contains circular dependencies"})
	}

	for _, n := range nodes {
		if n.Type != NodeEnd && len(adj.out[n.ID]) == 0 {
			r.addWarning(Issue{
				Code:    CodeDeadEnd,
				Message: fmt.Sprintf("Node %q has no outgoing connections", n.label()),
				NodeID:  n.ID,
			})
		}
	}
	for _, n := range nodes {
		if n.Type != NodeStart && len(adj.in[n.ID]) == 0 {
			r.addWarning(Issue{
				Code:    CodeUnreachable,
				Message: fmt.Sprintf("Node %q has no incoming connections", n.label()),
				NodeID:  n.ID,
			})
		}
	}

	for _, n := range nodes {
		v.checkFields(ctx, r, n)
	}

	r.IsValid = len(r.Errors) == 0
	return *r
}

func (r *Result) addError(issue Issue) {
	issue.Type = SeverityError
	r.Errors = append(r.Errors, issue)
}

func (r *Result) addWarning(issue Issue) {
	issue.Type = SeverityWarning
	r.Warnings = append(r.Warnings, issue)
}

// checkFields validates the required fields of a single node.
func (v Validator) checkFields(ctx context.Context, r *Result, n Node) {
	missingTitle := func(kind string) {
		if blank(n.Data.String("title")) {
			r.addError(Issue{Code: CodeMissingTitle, Message: kind + " node must have a title", NodeID: n.ID})
		}
	}

	switch n.Type {
	case NodeStart:
		missingTitle("Start")

	case NodeTask:
		missingTitle("Task")
		if blank(n.Data.String("assignee")) {
			r.addError(Issue{
				Code:    CodeMissingAssignee,
				Message: fmt.Sprintf("Task %q must have an assignee", n.label()),
				NodeID:  n.ID,
			})
		}

	case NodeApproval:
		missingTitle("Approval")
		role := n.Data.String("approverRole")
		switch {
		case role == "":
			r.addError(Issue{
				Code:    CodeMissingApproverRole,
				Message: fmt.Sprintf("Approval %q must have an approver role", n.label()),
				NodeID:  n.ID,
			})
		case !IsApproverRole(role):
			r.addError(Issue{
				Code:    CodeInvalidApproverRole,
				Message: fmt.Sprintf("Approval %q has unknown approver role %q", n.label(), role),
				NodeID:  n.ID,
			})
		}
		if threshold, ok := n.Data.Int("autoApproveThreshold"); ok && threshold < 0 {
			r.addError(Issue{
				Code:    CodeInvalidThreshold,
				Message: fmt.Sprintf("Approval %q auto-approve threshold cannot be negative", n.label()),
				NodeID:  n.ID,
			})
		}

	case NodeAutomated:
		missingTitle("Automated")
		actionID := n.Data.String("actionId")
		if actionID == "" {
			r.addError(Issue{
				Code:    CodeMissingAction,
				Message: fmt.Sprintf("Automated step %q must have an action selected", n.label()),
				NodeID:  n.ID,
			})
			return
		}
		v.checkAction(ctx, r, n, actionID)
	}
}

// checkAction resolves actionID against the catalog, when one is set. A
// catalog lookup failure skips the check rather than reporting the action as
// unknown.
func (v Validator) checkAction(ctx context.Context, r *Result, n Node, actionID string) {
	if v.Catalog == nil {
		return
	}
	automation, ok, err := v.Catalog.Lookup(ctx, actionID)
	if err != nil {
		return
	}
	if !ok {
		r.addError(Issue{
			Code:    CodeUnknownAction,
			Message: fmt.Sprintf("Automated step %q references unknown action %q", n.label(), actionID),
			NodeID:  n.ID,
		})
		return
	}
	params := n.Data.Map("parameters")
	for _, p := range automation.Params {
		if !p.Required {
			continue
		}
		if missingValue(params[p.Name]) {
			r.addWarning(Issue{
				Code:    CodeMissingParameter,
				Message: fmt.Sprintf("Automated step %q is missing required parameter %q", n.label(), p.Label),
				NodeID:  n.ID,
			})
		}
	}
}

func missingValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return blank(t)
	}
	return false
}

// reachable runs a breadth-first traversal from roots over outgoing edges.
func reachable(roots []string, adj adjacency) map[string]bool {
	visited := make(map[string]bool)
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, next := range adj.out[id] {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// hasCycle reports whether the outgoing-edge graph contains a cycle, using a
// depth-first search with a recursion stack over every node.
func hasCycle(nodes []Node, adj adjacency) bool {
	visited := make(map[string]bool, len(nodes))
	onStack := make(map[string]bool)

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, next := range adj.out[id] {
			if !visited[next] {
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, n := range nodes {
		if !visited[n.ID] && dfs(n.ID) {
			return true
		}
	}
	return false
}

func nodeIDs(nodes []Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
