package evalform

import "strings"

// Option is one checkbox choice within a category.
type Option struct {
	Slug  string
	Label string
}

// Category is one of the seven fixed evaluation categories. Options are in
// display order, which is also the order their labels join into the
// spreadsheet cell.
type Category struct {
	Key     string
	Label   string
	Options []Option
}

// Categories are fixed; the remote sheet's columns depend on these keys and
// labels, so changes here must be coordinated with the sheet.
var Categories = []Category{
	{
		Key:   "sales_effectiveness",
		Label: "Sales Effectiveness",
		Options: []Option{
			{Slug: "general_recommendation", Label: "General Recommendation"},
			{Slug: "upsell", Label: "Upsell"},
			{Slug: "cross_sell", Label: "Cross-sell"},
			{Slug: "drive_to_purchase", Label: "Drive to Purchase"},
		},
	},
	{
		Key:   "tone_and_style",
		Label: "Tone & Style",
		Options: []Option{
			{Slug: "on_brand", Label: "On Brand"},
			{Slug: "friendly", Label: "Friendly"},
			{Slug: "concise", Label: "Concise"},
			{Slug: "empathetic", Label: "Empathetic"},
		},
	},
	{
		Key:   "accuracy",
		Label: "Accuracy",
		Options: []Option{
			{Slug: "product_facts", Label: "Product Facts"},
			{Slug: "pricing", Label: "Pricing"},
			{Slug: "policy", Label: "Policy"},
			{Slug: "order_status", Label: "Order Status"},
		},
	},
	{
		Key:   "compliance",
		Label: "Compliance",
		Options: []Option{
			{Slug: "blocklisted_words", Label: "Blocklisted Words"},
			{Slug: "missed_escalation", Label: "Missed Escalation"},
			{Slug: "pii_handling", Label: "PII Handling"},
		},
	},
	{
		Key:   "helpfulness",
		Label: "Helpfulness",
		Options: []Option{
			{Slug: "answered_question", Label: "Answered Question"},
			{Slug: "proactive", Label: "Proactive"},
			{Slug: "clear_next_steps", Label: "Clear Next Steps"},
		},
	},
	{
		Key:   "template_usage",
		Label: "Template Usage",
		Options: []Option{
			{Slug: "right_template", Label: "Right Template"},
			{Slug: "personalized", Label: "Personalized"},
			{Slug: "no_template_needed", Label: "No Template Needed"},
		},
	},
	{
		Key:   "resolution",
		Label: "Resolution",
		Options: []Option{
			{Slug: "resolved", Label: "Resolved"},
			{Slug: "escalated_correctly", Label: "Escalated Correctly"},
			{Slug: "follow_up_needed", Label: "Follow-up Needed"},
		},
	},
}

// CategoryCell builds one spreadsheet cell from the captured form state:
// the labels of the selected options, in the category's fixed display order
// (never selection order), joined with commas.
func CategoryCell(state FormState, category Category) string {
	var labels []string
	for _, option := range category.Options {
		if state.Checked(category.Key, option.Slug) {
			labels = append(labels, option.Label)
		}
	}
	return strings.Join(labels, ",")
}
