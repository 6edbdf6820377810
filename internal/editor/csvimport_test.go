package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func scenarioRow() map[string]string {
	return map[string]string{
		colSendID:           "4711",
		colCompanyName:      "Acme Outdoors",
		colCompanyWebsite:   "acme.example",
		colPersona:          "Dana",
		colMessageTone:      "friendly",
		colConversationJSON: `[{"message_type":"Subscriber","message_text":"Hi there","message_media":[]},{"message_type":"agent","message_text":"Hello!","date_time":"2025-03-01 10:00:00"}]`,
		colLast5Products:    `[{"product_name":"Trail Mug","product_link":"https://acme.example/mug","view_date":"2 days ago"}]`,
		colOrders:           `[{"order_number":"A-100","order_date":"2025-02-20","products":[{"product_name":"Tent","product_price":"$120"}],"order_status_url":"https://acme.example/orders/A-100"}]`,
		colCompanyNotes:     "Always greet by name\n# Tone\n• Keep it casual",
		colEscalationTopics: `["legal", "chargeback"]`,
		colBlocklistedWords: "cheap, refund",
	}
}

func TestScenarioFromCSVRow(t *testing.T) {
	record := ScenarioFromCSVRow(scenarioRow())

	if record["id"] != "4711" || record["companyName"] != "Acme Outdoors" {
		t.Fatalf("identity fields: %v", record)
	}

	conversation, _ := record["conversation"].([]any)
	if len(conversation) != 2 {
		t.Fatalf("got %d conversation entries", len(conversation))
	}
	first, _ := conversation[0].(map[string]any)
	if first["message_type"] != "subscriber" {
		t.Errorf("message_type must be lowercased, got %v", first["message_type"])
	}
	second, _ := conversation[1].(map[string]any)
	if second["date_time"] != "2025-03-01 10:00:00" {
		t.Errorf("date_time missing, got %v", second)
	}

	panel, _ := record["rightPanel"].(map[string]any)
	source, _ := panel["source"].(map[string]any)
	if diff := cmp.Diff(map[string]any{"label": "Website", "value": "acme.example", "date": ""}, source); diff != "" {
		t.Errorf("source block (-want +got):\n%s", diff)
	}
	history, _ := panel["browsingHistory"].([]any)
	if len(history) != 1 {
		t.Fatalf("got %d browsing history entries", len(history))
	}
	product, _ := history[0].(map[string]any)
	if product["item"] != "Trail Mug" || product["timeAgo"] != "2 days ago" {
		t.Errorf("browsing history entry: %v", product)
	}
	orders, _ := panel["orders"].([]any)
	if len(orders) != 1 {
		t.Fatalf("got %d orders", len(orders))
	}
	order, _ := orders[0].(map[string]any)
	if order["orderNumber"] != "A-100" || order["link"] != "https://acme.example/orders/A-100" {
		t.Errorf("order entry: %v", order)
	}

	notes, _ := record["notes"].(map[string]any)
	if _, ok := notes["tone"]; !ok {
		t.Errorf("company notes did not categorize: %v", notes)
	}
	if diff := cmp.Diff([]any{"legal", "chargeback"}, record["escalation_preferences"]); diff != "" {
		t.Errorf("escalation_preferences (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"cheap", "refund"}, record["blocklisted_words"]); diff != "" {
		t.Errorf("blocklisted_words (-want +got):\n%s", diff)
	}
}

func TestScenarioFromCSVRowMalformedCells(t *testing.T) {
	row := scenarioRow()
	row[colConversationJSON] = "{not json"
	row[colLast5Products] = ""
	row[colOrders] = "also not json"

	record := ScenarioFromCSVRow(row)

	if conversation, _ := record["conversation"].([]any); len(conversation) != 0 {
		t.Errorf("malformed conversation cell must contribute nothing, got %v", conversation)
	}
	panel, _ := record["rightPanel"].(map[string]any)
	if _, ok := panel["browsingHistory"]; ok {
		t.Error("empty products cell must not add a browsingHistory block")
	}
	if _, ok := panel["orders"]; ok {
		t.Error("malformed orders cell must not add an orders block")
	}
}

func TestTemplateFromCSVRow(t *testing.T) {
	tpl, ok := TemplateFromCSVRow(map[string]string{
		"TEMPLATE_TITLE": "Greeting",
		"TEMPLATE_TEXT":  "Hi {{name}}!",
		"SHORTCUT":       "/hi",
		"COMPANY":        "Acme Outdoors",
	})
	if !ok {
		t.Fatal("expected ok")
	}
	if tpl.Name != "Greeting" || tpl.Content != "Hi {{name}}!" || tpl.Shortcut != "/hi" || tpl.CompanyName != "Acme Outdoors" {
		t.Fatalf("template: %+v", tpl)
	}

	if _, ok := TemplateFromCSVRow(map[string]string{"TEMPLATE_TITLE": "No body"}); ok {
		t.Error("row without content must be skipped")
	}
}

func TestMessageMediaList(t *testing.T) {
	got := MessageMediaList([]any{
		"https://cdn.example/a.jpg",
		`["https://cdn.example/b.mp4", "https://cdn.example/c.png"]`,
		"",
	})
	want := []any{
		"https://cdn.example/a.jpg",
		"https://cdn.example/b.mp4",
		"https://cdn.example/c.png",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MessageMediaList (-want +got):\n%s", diff)
	}

	if got := MessageMediaList(nil); len(got) != 0 {
		t.Errorf("nil media: got %v", got)
	}
}
