package record

import (
	"strings"
)

// Field names as they appear in pasted text and in the spreadsheet header.
const (
	FieldProductName   = "제품명"
	FieldRecipientName = "수취인명"
	FieldPhone         = "연락처"
	FieldBank          = "은행"
	FieldAccount       = "계좌"
	FieldAccountHolder = "예금주"
	FieldAmount        = "결제금액"
	FieldUserID        = "아이디"
	FieldOrderNumber   = "주문번호"
	FieldAddress       = "주소"
	FieldNickname      = "닉네임"
	FieldReturnName    = "회수이름"
	FieldReturnPhone   = "회수연락처"
)

var (
	// CanonicalFields is the column order of a submitted row. The
	// submit-orders backend decodes rows by position, so this order must
	// match the sheet layout exactly.
	CanonicalFields = []string{
		FieldProductName, FieldRecipientName, FieldPhone, FieldBank, FieldAccount, FieldAccountHolder,
		FieldAmount, FieldUserID, FieldOrderNumber, FieldAddress, FieldNickname, FieldReturnName, FieldReturnPhone,
	}

	// AutoFields are filled by image analysis.
	AutoFields = []string{
		FieldProductName, FieldRecipientName, FieldPhone, FieldAddress, FieldOrderNumber, FieldAmount,
	}

	// ManualFields are typed or pasted by the user.
	ManualFields = []string{
		FieldBank, FieldAccount, FieldAccountHolder, FieldUserID, FieldNickname, FieldReturnName, FieldReturnPhone,
	}

	DefaultRequiredFields = []string{
		FieldProductName, FieldUserID, FieldBank, FieldAccount, FieldAccountHolder,
	}
)

// Record maps a field name to its value. A key present with an empty value
// is distinct from an absent key only until serialization.
type Record map[string]string

// Clone returns an independent copy; a nil record clones to an empty one.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// With returns a copy of r with key set to value.
func (r Record) With(key, value string) Record {
	out := r.Clone()
	out[key] = value
	return out
}

// NonEmpty returns the entries whose trimmed value is not empty.
func (r Record) NonEmpty() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// Missing reports the first field of required whose trimmed value is empty.
func Missing(r Record, required []string) (string, bool) {
	for _, field := range required {
		if strings.TrimSpace(r[field]) == "" {
			return field, true
		}
	}
	return "", false
}
