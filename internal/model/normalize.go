package model

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NormalizeTaskDocument converts a loosely shaped store document into a Task.
// Missing optional fields get defaults, scalars are coerced to lists, and an
// unreadable publish date is kept in PublishDateRaw instead of failing the
// whole document. loc gives the calendar day of timestamp-typed publish dates.
func NormalizeTaskDocument(doc map[string]interface{}, loc *time.Location) Task {
	t := Task{
		ID:                idString(doc["_id"]),
		Type:              asString(doc["type"]),
		Format:            asString(doc["format"]),
		Objective:         asString(doc["objective"]),
		Audience:          asString(doc["audience"]),
		ContentIdea:       asString(doc["contentIdea"]),
		Platforms:         asStringList(firstPresent(doc, "platform", "platforms", "platformList")),
		ResponsibleIDs:    asStringList(firstPresent(doc, "responsibleIds", "responsibleId")),
		ResponsibleEmails: asStringList(firstPresent(doc, "responsibleEmails", "responsibleEmail")),
		IsGroupTask:       asBool(doc["isGroupTask"], false),
		IsActive:          asBool(doc["isActive"], true),
		CreatedAt:         asTime(doc["createdAt"]),
		UpdatedAt:         asTime(doc["updatedAt"]),
	}
	if t.ID == "" {
		t.ID = idString(doc["id"])
	}

	t.Status = StatusPlanned
	if st, err := ParseStatus(asString(doc["status"])); err == nil {
		t.Status = st
	}

	t.RecurrenceDays, _ = ParseWeekdaySet(asStringList(doc["recurrenceDays"]))

	switch v := doc["publishDate"].(type) {
	case nil:
	case primitive.DateTime:
		t.PublishDate = DateOf(v.Time().In(loc))
	case time.Time:
		t.PublishDate = DateOf(v.In(loc))
	default:
		raw := strings.TrimSpace(asString(v))
		if raw != "" {
			d, err := ParseDate(raw)
			if err != nil {
				t.PublishDateRaw = raw
			} else {
				t.PublishDate = d
			}
		}
	}

	t.IndividualStatus = make(map[string]Status)
	for userID, raw := range asMap(doc["individualStatus"]) {
		st, err := ParseStatus(asString(raw))
		if err != nil {
			st = StatusPlanned
		}
		t.IndividualStatus[userID] = st
	}

	return t
}

func firstPresent(doc map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := doc[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case nil:
		return ""
	default:
		return asString(id)
	}
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

func asStringList(v interface{}) []string {
	var items []interface{}
	switch l := v.(type) {
	case nil:
		return []string{}
	case string:
		if strings.TrimSpace(l) == "" {
			return []string{}
		}
		return []string{l}
	case []string:
		return append([]string{}, l...)
	case primitive.A:
		items = l
	case []interface{}:
		items = l
	default:
		return []string{asString(l)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asBool(v interface{}, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(b) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return def
}

func asTime(v interface{}) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time()
	case time.Time:
		return t
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0)
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func asMap(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case primitive.M:
		return m
	case map[string]interface{}:
		return m
	case primitive.D:
		out := make(map[string]interface{}, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out
	}
	return nil
}
