package events

import "fmt"

// Public reports whether visitors may see ev and returns the copy they get.
// Sign-ins, pending registrations, drafts and mirror housekeeping stay on the
// staff feed. Payloads are cut down to what the public pages already show.
func Public(ev Event) (Event, bool) {
	out := Event{Seq: ev.Seq, Type: ev.Type, At: ev.At}
	switch ev.Type {
	case NewsCreated, NewsUpdated:
		if field(ev.Data, "status") != "published" {
			return Event{}, false
		}
		out.ID = ev.ID
		if slug := field(ev.Data, "slug"); slug != "" {
			out.Data = map[string]any{"slug": slug}
		}
	case BusinessStatus, BusinessUpdated:
		if field(ev.Data, "status") != "approved" {
			return Event{}, false
		}
		out.ID = ev.ID
	case NewsDeleted, BusinessDeleted:
		// refresh hint only; the id may belong to a draft or a pending record
	case ReviewCreated, VisitorTracked:
		out.ID = ev.ID
		out.Data = ev.Data
	default:
		return Event{}, false
	}
	return out, true
}

// PublicSince filters evs down to the public feed.
func PublicSince(evs []Event) []Event {
	out := make([]Event, 0, len(evs))
	for _, ev := range evs {
		if p, ok := Public(ev); ok {
			out = append(out, p)
		}
	}
	return out
}

// field reads a string value from a payload. Payloads are maps in process
// and after a trip through Redis.
func field(data any, key string) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
