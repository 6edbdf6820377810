package editor

import (
	"strings"

	"traindeck/internal/catalog"
)

// Scenario CSV column contract, as exported from the tracking sheet.
const (
	colSendID           = "SEND_ID"
	colCompanyName      = "COMPANY_NAME"
	colCompanyWebsite   = "COMPANY_WEBSITE"
	colPersona          = "PERSONA"
	colMessageTone      = "MESSAGE_TONE"
	colConversationJSON = "CONVERSATION_JSON"
	colLast5Products    = "LAST_5_PRODUCTS"
	colOrders           = "ORDERS"
	colCompanyNotes     = "COMPANY_NOTES"
	colEscalationTopics = "ESCALATION_TOPICS"
	colBlocklistedWords = "BLOCKLISTED_WORDS"
)

// Template CSV header aliases, in lookup order.
var (
	templateNameCols     = []string{"TEMPLATE_TITLE", "TEMPLATE_NAME", "NAME", "TEMPLATE", "TITLE"}
	templateContentCols  = []string{"TEMPLATE_TEXT", "CONTENT", "TEMPLATE_CONTENT", "BODY", "TEXT", "MESSAGE"}
	templateShortcutCols = []string{"SHORTCUT", "CODE", "KEYWORD"}
	templateCompanyCols  = []string{"COMPANY_NAME", "COMPANY", "BRAND"}
	templateIDCols       = []string{"TEMPLATE_ID", "ID"}
)

// ScenarioFromCSVRow converts one sheet row into a raw scenario record,
// ready for NormalizeRecordForStorage. Cells holding embedded JSON
// (conversation, products, orders) parse tolerantly: a malformed cell
// contributes nothing rather than failing the row.
func ScenarioFromCSVRow(row map[string]string) map[string]any {
	var conversation []any
	if parsed, ok := ParseJSONText(NormalizeText(row[colConversationJSON])); ok {
		if list, ok := parsed.([]any); ok {
			for _, item := range list {
				msg, ok := item.(map[string]any)
				if !ok {
					continue
				}
				entry := map[string]any{
					"message_media": MessageMediaList(firstOf(msg, "message_media", "media")),
					"message_text":  NormalizeText(firstOf(msg, "message_text", "content")),
					"message_type":  strings.ToLower(NormalizeText(firstOf(msg, "message_type", "role"))),
				}
				if dateTime := strings.TrimSpace(NormalizeText(firstOf(msg, "date_time", "dateTime", "timestamp"))); dateTime != "" {
					entry["date_time"] = dateTime
				}
				if msgID := strings.TrimSpace(NormalizeText(firstOf(msg, "message_id", "id"))); msgID != "" {
					entry["message_id"] = msgID
				}
				conversation = append(conversation, entry)
			}
		}
	}

	var browsingHistory []any
	if parsed, ok := ParseJSONText(NormalizeText(row[colLast5Products])); ok {
		if list, ok := parsed.([]any); ok {
			for _, item := range list {
				product, ok := item.(map[string]any)
				if !ok {
					continue
				}
				name := strings.TrimSpace(NormalizeText(product["product_name"]))
				link := strings.TrimSpace(NormalizeText(product["product_link"]))
				viewDate := strings.TrimSpace(NormalizeText(product["view_date"]))
				if name == "" && link == "" {
					continue
				}
				entry := map[string]any{"item": name}
				if name == "" {
					entry["item"] = link
				}
				if link != "" {
					entry["link"] = link
				}
				if viewDate != "" {
					entry["timeAgo"] = viewDate
				}
				browsingHistory = append(browsingHistory, entry)
			}
		}
	}

	var orders []any
	if parsed, ok := ParseJSONText(NormalizeText(row[colOrders])); ok {
		if list, ok := parsed.([]any); ok {
			for _, item := range list {
				order, ok := item.(map[string]any)
				if !ok {
					continue
				}
				var items []any
				if products, ok := order["products"].([]any); ok {
					for _, p := range products {
						product, ok := p.(map[string]any)
						if !ok {
							continue
						}
						itemOut := map[string]any{"name": strings.TrimSpace(NormalizeText(product["product_name"]))}
						price := firstOf(product, "product_price", "price")
						if strings.TrimSpace(NormalizeText(price)) != "" {
							itemOut["price"] = price
						}
						if link := strings.TrimSpace(NormalizeText(product["product_link"])); link != "" {
							itemOut["productLink"] = link
						}
						items = append(items, itemOut)
					}
				}
				orderOut := map[string]any{
					"orderNumber": strings.TrimSpace(NormalizeText(order["order_number"])),
					"orderDate":   strings.TrimSpace(NormalizeText(order["order_date"])),
					"items":       items,
				}
				if link := strings.TrimSpace(NormalizeText(order["order_status_url"])); link != "" {
					orderOut["link"] = link
				}
				if strings.TrimSpace(NormalizeText(order["total"])) != "" {
					orderOut["total"] = order["total"]
				}
				orders = append(orders, orderOut)
			}
		}
	}

	rightPanel := map[string]any{
		"source": map[string]any{
			"label": "Website",
			"value": strings.TrimSpace(NormalizeText(row[colCompanyWebsite])),
			"date":  "",
		},
	}
	if len(browsingHistory) > 0 {
		rightPanel["browsingHistory"] = browsingHistory
	}
	if len(orders) > 0 {
		rightPanel["orders"] = orders
	}

	record := map[string]any{
		"id":             strings.TrimSpace(NormalizeText(row[colSendID])),
		"companyName":    strings.TrimSpace(NormalizeText(row[colCompanyName])),
		"companyWebsite": strings.TrimSpace(NormalizeText(row[colCompanyWebsite])),
		"agentName":      strings.TrimSpace(NormalizeText(row[colPersona])),
		"messageTone":    strings.TrimSpace(NormalizeText(row[colMessageTone])),
		"conversation":   conversation,
		"rightPanel":     rightPanel,
	}
	if notes := ParseCompanyNotes(strings.TrimSpace(NormalizeText(row[colCompanyNotes]))); notes != nil {
		record["notes"] = toAnyMap(notes)
	}
	record["escalation_preferences"] = anySlice(ParseListLikeText(NormalizeText(row[colEscalationTopics])))
	record["blocklisted_words"] = anySlice(ParseListLikeText(NormalizeText(row[colBlocklistedWords])))
	return record
}

// TemplateFromCSVRow converts one template row, resolving each field
// through its header aliases. Rows missing a name or content are skipped
// by returning ok=false.
func TemplateFromCSVRow(row map[string]string) (catalog.Template, bool) {
	tpl := catalog.Template{
		Name:        pickColumn(row, templateNameCols),
		Content:     pickColumn(row, templateContentCols),
		Shortcut:    pickColumn(row, templateShortcutCols),
		CompanyName: pickColumn(row, templateCompanyCols),
		ID:          pickColumn(row, templateIDCols),
	}
	if tpl.Name == "" || tpl.Content == "" {
		return catalog.Template{}, false
	}
	return tpl, true
}

// MessageMediaList flattens a media value into URL strings, unwrapping
// JSON-encoded lists nested inside string cells.
func MessageMediaList(media any) []any {
	var items []any
	switch v := media.(type) {
	case nil:
		return []any{}
	case []any:
		items = v
	default:
		items = []any{media}
	}

	out := []any{}
	for _, item := range items {
		text := strings.TrimSpace(NormalizeText(item))
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]") {
			if nested, ok := ParseJSONText(text); ok {
				if nestedList, ok := nested.([]any); ok {
					for _, nestedItem := range nestedList {
						if nestedText := strings.TrimSpace(NormalizeText(nestedItem)); nestedText != "" {
							out = append(out, nestedText)
						}
					}
					continue
				}
			}
		}
		out = append(out, text)
	}
	return out
}

func pickColumn(row map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if value := strings.TrimSpace(NormalizeText(row[alias])); value != "" {
			return value
		}
	}
	return ""
}

func firstOf(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func toAnyMap(notes map[string][]string) map[string]any {
	out := make(map[string]any, len(notes))
	for key, items := range notes {
		out[key] = anySlice(items)
	}
	return out
}
