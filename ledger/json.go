/*
json.go - Wire shapes for Member and Receipt

The backup interchange format predates this implementation: periods travel
as flat month/year integer pairs (duesFromMonth, paymentTillYear, ...), not
as nested objects. Member and Receipt marshal through alias structs so the
engine keeps its Period types while files and API payloads keep the
original field names.
*/
package ledger

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type memberJSON struct {
	ID                 MemberID        `json:"id"`
	Name               string          `json:"name"`
	CountryCode        string          `json:"countryCode"`
	Phone              string          `json:"phone"`
	Building           string          `json:"building"`
	Apartment          string          `json:"apartment"`
	SocietyID          SocietyID       `json:"societyId"`
	MonthlyMaintenance decimal.Decimal `json:"monthlyMaintenance"`
	MonthlyWaterBill   decimal.Decimal `json:"monthlyWaterBill"`
	OtherBills         []OtherBill     `json:"otherBills"`
	DuesFromMonth      int             `json:"duesFromMonth,omitempty"` // 1-12
	DuesFromYear       int             `json:"duesFromYear,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func (m Member) MarshalJSON() ([]byte, error) {
	out := memberJSON{
		ID:                 m.ID,
		Name:               m.Name,
		CountryCode:        m.CountryCode,
		Phone:              m.Phone,
		Building:           m.Building,
		Apartment:          m.Apartment,
		SocietyID:          m.SocietyID,
		MonthlyMaintenance: m.MonthlyMaintenance,
		MonthlyWaterBill:   m.MonthlyWaterBill,
		OtherBills:         m.OtherBills,
		CreatedAt:          m.CreatedAt,
	}
	if m.DuesFrom != nil {
		out.DuesFromMonth = int(m.DuesFrom.Month)
		out.DuesFromYear = m.DuesFrom.Year
	}
	return json.Marshal(out)
}

func (m *Member) UnmarshalJSON(data []byte) error {
	var in memberJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = Member{
		ID:                 in.ID,
		Name:               in.Name,
		CountryCode:        in.CountryCode,
		Phone:              in.Phone,
		Building:           in.Building,
		Apartment:          in.Apartment,
		SocietyID:          in.SocietyID,
		MonthlyMaintenance: in.MonthlyMaintenance,
		MonthlyWaterBill:   in.MonthlyWaterBill,
		OtherBills:         in.OtherBills,
		CreatedAt:          in.CreatedAt,
	}
	if in.DuesFromMonth != 0 && in.DuesFromYear != 0 {
		p := NewPeriod(in.DuesFromMonth, in.DuesFromYear)
		m.DuesFrom = &p
	}
	return nil
}

type receiptJSON struct {
	ID               ReceiptID       `json:"id"`
	ReceiptNumber    int             `json:"receiptNumber"`
	Date             time.Time       `json:"date"`
	MemberID         MemberID        `json:"memberId"`
	MemberName       string          `json:"memberName"`
	SocietyID        SocietyID       `json:"societyId"`
	SocietyName      string          `json:"societyName"`
	Items            []PaymentItem   `json:"items"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	PaymentFromMonth int             `json:"paymentFromMonth"` // 1-12
	PaymentFromYear  int             `json:"paymentFromYear"`
	PaymentTillMonth int             `json:"paymentTillMonth"` // 1-12
	PaymentTillYear  int             `json:"paymentTillYear"`
	Description      string          `json:"description,omitempty"`
}

func (r Receipt) MarshalJSON() ([]byte, error) {
	return json.Marshal(receiptJSON{
		ID:               r.ID,
		ReceiptNumber:    r.ReceiptNumber,
		Date:             r.Date,
		MemberID:         r.MemberID,
		MemberName:       r.MemberName,
		SocietyID:        r.SocietyID,
		SocietyName:      r.SocietyName,
		Items:            r.Items,
		TotalAmount:      r.TotalAmount,
		PaymentFromMonth: int(r.Payment.From.Month),
		PaymentFromYear:  r.Payment.From.Year,
		PaymentTillMonth: int(r.Payment.Till.Month),
		PaymentTillYear:  r.Payment.Till.Year,
		Description:      r.Description,
	})
}

func (r *Receipt) UnmarshalJSON(data []byte) error {
	var in receiptJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Receipt{
		ID:            in.ID,
		ReceiptNumber: in.ReceiptNumber,
		Date:          in.Date,
		MemberID:      in.MemberID,
		MemberName:    in.MemberName,
		SocietyID:     in.SocietyID,
		SocietyName:   in.SocietyName,
		Items:         in.Items,
		TotalAmount:   in.TotalAmount,
		Payment: PeriodRange{
			From: NewPeriod(in.PaymentFromMonth, in.PaymentFromYear),
			Till: NewPeriod(in.PaymentTillMonth, in.PaymentTillYear),
		},
		Description: in.Description,
	}
	return nil
}
