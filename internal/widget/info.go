package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Form fields posted by the portal to a placement handler.
const (
	FieldPlacement = "PLACEMENT"
	FieldOptions   = "PLACEMENT_OPTIONS"
	FieldDomain    = "DOMAIN"
	FieldLang      = "LANG"
	FieldMemberID  = "member_id"
	FieldAuthID    = "AUTH_ID"
	FieldRefreshID = "REFRESH_ID"
	FieldAuthTTL   = "AUTH_EXPIRES"
)

// ErrNoPlacement is returned when the request does not name a placement.
var ErrNoPlacement = errors.New("request carries no PLACEMENT")

// PlacementInfo is the render context of one widget instance.
type PlacementInfo struct {
	Placement string         `json:"placement"`
	Options   map[string]any `json:"options"`
	Domain    string         `json:"domain,omitempty"`
	Lang      string         `json:"lang,omitempty"`
	MemberID  string         `json:"member_id,omitempty"`
}

// EntityID returns the CRM entity the widget is opened for. Detail tabs
// carry it as options.ID. widget.html renders it as data-entity.
func (p PlacementInfo) EntityID() string {
	switch v := p.Options["ID"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// Parse builds a PlacementInfo from the portal's form values. Query and
// body values may be merged into form by the caller.
func Parse(form url.Values) (PlacementInfo, error) {
	info := PlacementInfo{
		Placement: strings.TrimSpace(form.Get(FieldPlacement)),
		Domain:    form.Get(FieldDomain),
		Lang:      form.Get(FieldLang),
		MemberID:  form.Get(FieldMemberID),
		Options:   map[string]any{},
	}
	if info.Placement == "" {
		return info, ErrNoPlacement
	}

	raw := strings.TrimSpace(form.Get(FieldOptions))
	if raw == "" || raw == "[]" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(raw), &info.Options); err != nil {
		return info, fmt.Errorf("decoding %s: %w", FieldOptions, err)
	}
	if info.Options == nil {
		info.Options = map[string]any{}
	}
	return info, nil
}
