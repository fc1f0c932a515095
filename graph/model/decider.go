package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/flowsim/graph"
)

// ApprovalSystemPrompt instructs the model how to answer.
const ApprovalSystemPrompt = `You review steps of an HR workflow simulation.
Reply with APPROVE or REJECT on the first line, followed by a one-sentence reason.`

// ApprovalDecider asks a ChatModel to approve or reject approval steps.
type ApprovalDecider struct {
	chat ChatModel
}

// NewApprovalDecider returns a graph.ApprovalDecider backed by chat. A step
// is approved iff the trimmed reply starts with "APPROVE" (case-insensitive).
func NewApprovalDecider(chat ChatModel) *ApprovalDecider {
	return &ApprovalDecider{chat: chat}
}

var _ graph.ApprovalDecider = (*ApprovalDecider)(nil)

// Decide implements graph.ApprovalDecider.
func (d *ApprovalDecider) Decide(ctx context.Context, node graph.Node) (graph.Decision, error) {
	out, err := d.chat.Chat(ctx, []Message{
		{Role: RoleSystem, Content: ApprovalSystemPrompt},
		{Role: RoleUser, Content: approvalPrompt(node)},
	})
	if err != nil {
		return graph.Decision{}, err
	}
	return parseDecision(out.Text), nil
}

func approvalPrompt(node graph.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Approval step: %s\n", node.Data.String("title"))
	fmt.Fprintf(&sb, "Approver role: %s\n", node.Data.String("approverRole"))
	if t, ok := node.Data.Int("autoApproveThreshold"); ok && t > 0 {
		fmt.Fprintf(&sb, "Auto-approve threshold: %d\n", t)
	}
	sb.WriteString("Should this step be approved?")
	return sb.String()
}

// parseDecision reads the verdict from the first word and keeps the rest of
// the reply as the reason.
func parseDecision(text string) graph.Decision {
	text = strings.TrimSpace(text)
	approved := strings.HasPrefix(strings.ToUpper(text), "APPROVE")

	var reason string
	if i := strings.IndexAny(text, " \n\t:"); i >= 0 {
		reason = strings.TrimLeft(text[i:], " \n\t:-")
	}
	return graph.Decision{Approved: approved, Reason: reason}
}
