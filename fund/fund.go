package fund

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one fund's point-in-time snapshot. Nav and DailyGrowth use
// decimal arithmetic so values survive round trips without float drift.
type Record struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Nav         decimal.Decimal `json:"nav"`
	DailyGrowth decimal.Decimal `json:"daily_growth"`
	NavDate     time.Time       `json:"nav_date"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ParseDetail decodes a single fund record from an API body.
func ParseDetail(body []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, ErrParse("detail", err)
	}
	if r.Code == "" {
		return nil, ErrMissingCode
	}
	return &r, nil
}

// ParseList decodes a fund list from an API body. Entries without a code
// are dropped rather than failing the whole list.
func ParseList(body []byte) ([]Record, error) {
	var raw []Record
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ErrParse("list", err)
	}
	out := raw[:0]
	for _, r := range raw {
		if r.Code == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Checksum fingerprints the record's value fields for version comparison.
func (r *Record) Checksum() string {
	h := sha256.New()
	h.Write([]byte(r.Code))
	h.Write([]byte(r.Nav.String()))
	h.Write([]byte(r.DailyGrowth.String()))
	h.Write([]byte(r.NavDate.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// FieldTimes maps each field to its last-modified time for field-level
// merge resolution. Nav-derived fields move with NavDate, the rest with
// UpdatedAt.
func (r *Record) FieldTimes() map[string]time.Time {
	return map[string]time.Time{
		"name":         r.UpdatedAt,
		"nav":          r.NavDate,
		"daily_growth": r.NavDate,
		"nav_date":     r.NavDate,
	}
}

// AsMap returns the record in the generic map form field-level merge
// strategies operate on.
func (r *Record) AsMap() map[string]any {
	return map[string]any{
		"code":         r.Code,
		"name":         r.Name,
		"nav":          r.Nav.String(),
		"daily_growth": r.DailyGrowth.String(),
		"nav_date":     r.NavDate,
	}
}
