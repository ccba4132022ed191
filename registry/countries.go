package registry

// Country describes the dialing metadata used to validate member phone
// numbers. PhoneLengths lists the accepted national-number lengths; some
// countries accept more than one.
type Country struct {
	Name         string
	Code         string // dialing code, e.g. "+91"
	ISO          string
	PhoneLengths []int
}

var countries = []Country{
	{Name: "India", Code: "+91", ISO: "IN", PhoneLengths: []int{10}},
	{Name: "United States", Code: "+1", ISO: "US", PhoneLengths: []int{10}},
	{Name: "United Kingdom", Code: "+44", ISO: "GB", PhoneLengths: []int{10}},
	{Name: "United Arab Emirates", Code: "+971", ISO: "AE", PhoneLengths: []int{9}},
	{Name: "Singapore", Code: "+65", ISO: "SG", PhoneLengths: []int{8}},
	{Name: "Australia", Code: "+61", ISO: "AU", PhoneLengths: []int{9}},
	{Name: "Canada", Code: "+1", ISO: "CA", PhoneLengths: []int{10}},
	{Name: "Germany", Code: "+49", ISO: "DE", PhoneLengths: []int{10, 11}},
	{Name: "Indonesia", Code: "+62", ISO: "ID", PhoneLengths: []int{9, 10, 11}},
	{Name: "Nepal", Code: "+977", ISO: "NP", PhoneLengths: []int{10}},
}

// Countries returns the supported country table.
func Countries() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

// CountryByCode looks up a country by dialing code. Returns nil when the
// code is unknown; unknown codes skip length validation rather than fail.
func CountryByCode(code string) *Country {
	for i := range countries {
		if countries[i].Code == code {
			return &countries[i]
		}
	}
	return nil
}

// ValidPhoneLength reports whether the phone number's digit count matches
// one of the country's accepted lengths.
func (c *Country) ValidPhoneLength(phone string) bool {
	n := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	for _, l := range c.PhoneLengths {
		if n == l {
			return true
		}
	}
	return false
}
