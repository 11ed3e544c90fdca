package entity

import (
	"encoding/json"
	"fmt"
)

// Header names that map onto dedicated Row fields.
const (
	FieldImpressions  = "impressions"
	FieldClicks       = "clicks"
	FieldConversions  = "conversions"
	FieldSpend        = "spend"
	FieldRevenue      = "revenue"
	FieldLeads        = "leads"
	FieldOrders       = "orders"
	FieldCampaignName = "campaign_name"
	FieldAdCopy       = "ad_copy"
	FieldCTR          = "ctr"
	FieldCPA          = "cpa"
	FieldCPC          = "cpc"
)

// NumericFields lists the headers whose values are coerced to numbers.
//
//nolint:gochecknoglobals // fixed schema
var NumericFields = []string{
	FieldImpressions,
	FieldClicks,
	FieldConversions,
	FieldSpend,
	FieldRevenue,
	FieldLeads,
	FieldOrders,
}

// fieldBit records which dedicated fields were present in the source header.
//
//nolint:gochecknoglobals // fixed schema
var fieldBit = map[string]uint16{
	FieldImpressions:  1 << 0,
	FieldClicks:       1 << 1,
	FieldConversions:  1 << 2,
	FieldSpend:        1 << 3,
	FieldRevenue:      1 << 4,
	FieldLeads:        1 << 5,
	FieldOrders:       1 << 6,
	FieldCampaignName: 1 << 7,
	FieldAdCopy:       1 << 8,
}

// IsNumericField reports whether a (lower-cased) header is coerced to a number.
func IsNumericField(name string) bool {
	bit, ok := fieldBit[name]
	return ok && bit <= fieldBit[FieldOrders]
}

// IsDerivedField reports whether name is one of the computed ratios.
func IsDerivedField(name string) bool {
	return name == FieldCTR || name == FieldCPA || name == FieldCPC
}

// Row is one parsed marketing record.
//
// Recognized headers get typed fields; every other header lands in Extra as
// text. The JSON form is the flat header -> value object of the source file
// plus the derived ratios.
type Row struct {
	// Source is the id of the file the row came from. It is never serialized.
	Source string

	CampaignName string
	AdCopy       string

	Impressions float64
	Clicks      float64
	Conversions float64
	Spend       float64
	Revenue     float64
	Leads       float64
	Orders      float64

	CTR float64
	CPA float64
	CPC float64

	Extra map[string]string

	present uint16
}

// SetNumber assigns a recognized numeric field. It returns false for other names.
func (r *Row) SetNumber(name string, v float64) bool {
	ptr := r.numberPtr(name)
	if ptr == nil {
		return false
	}

	*ptr = v
	r.present |= fieldBit[name]
	return true
}

// Number returns the value of a recognized numeric field and whether the
// source header contained it.
func (r *Row) Number(name string) (float64, bool) {
	ptr := r.numberPtr(name)
	if ptr == nil {
		return 0, false
	}
	return *ptr, r.present&fieldBit[name] != 0
}

// SetText assigns a text field. Derived ratio names are ignored because
// derivation always overwrites them.
func (r *Row) SetText(name, v string) {
	switch name {
	case FieldCampaignName:
		r.CampaignName = v
		r.present |= fieldBit[name]
	case FieldAdCopy:
		r.AdCopy = v
		r.present |= fieldBit[name]
	default:
		if IsDerivedField(name) {
			return
		}
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[name] = v
	}
}

// Text returns a text field and whether the source header contained it.
func (r *Row) Text(name string) (string, bool) {
	switch name {
	case FieldCampaignName:
		return r.CampaignName, r.present&fieldBit[name] != 0
	case FieldAdCopy:
		return r.AdCopy, r.present&fieldBit[name] != 0
	default:
		v, ok := r.Extra[name]
		return v, ok
	}
}

func (r *Row) numberPtr(name string) *float64 {
	switch name {
	case FieldImpressions:
		return &r.Impressions
	case FieldClicks:
		return &r.Clicks
	case FieldConversions:
		return &r.Conversions
	case FieldSpend:
		return &r.Spend
	case FieldRevenue:
		return &r.Revenue
	case FieldLeads:
		return &r.Leads
	case FieldOrders:
		return &r.Orders
	default:
		return nil
	}
}

// Fields returns the flat header -> value view of the row.
func (r Row) Fields() map[string]any {
	out := make(map[string]any, len(r.Extra)+len(NumericFields)+5)
	for k, v := range r.Extra {
		out[k] = v
	}
	for _, name := range NumericFields {
		if v, ok := r.Number(name); ok {
			out[name] = v
		}
	}
	if v, ok := r.Text(FieldCampaignName); ok {
		out[FieldCampaignName] = v
	}
	if v, ok := r.Text(FieldAdCopy); ok {
		out[FieldAdCopy] = v
	}
	out[FieldCTR] = r.CTR
	out[FieldCPA] = r.CPA
	out[FieldCPC] = r.CPC

	return out
}

// MarshalJSON encodes the row as a flat object.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// UnmarshalJSON decodes a flat object produced by MarshalJSON.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Row{}
	for k, v := range raw {
		switch val := v.(type) {
		case float64:
			switch k {
			case FieldCTR:
				r.CTR = val
			case FieldCPA:
				r.CPA = val
			case FieldCPC:
				r.CPC = val
			default:
				if !r.SetNumber(k, val) {
					r.SetText(k, fmt.Sprint(val))
				}
			}
		case string:
			r.SetText(k, val)
		case nil:
			r.SetText(k, "")
		default:
			return fmt.Errorf("row field %q: unsupported value %T", k, v)
		}
	}

	return nil
}
