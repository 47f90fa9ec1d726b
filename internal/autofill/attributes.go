package autofill

// AttributeKey is one of the closed set of user attributes the engine
// knows how to place. Unknown keys in an Attributes map are ignored.
type AttributeKey string

const (
	AttrFirstName AttributeKey = "firstName"
	AttrLastName  AttributeKey = "lastName"
	AttrEmail     AttributeKey = "email"
	AttrPhone     AttributeKey = "phone"
	AttrCompany   AttributeKey = "company"
	AttrWebsite   AttributeKey = "website"
	AttrAddress   AttributeKey = "address"
	AttrCity      AttributeKey = "city"
	AttrState     AttributeKey = "state"
	AttrZipCode   AttributeKey = "zipCode"
	AttrCountry   AttributeKey = "country"
	AttrTaxID     AttributeKey = "taxId"
)

// Attributes maps known attribute keys to the values a user has chosen
// to share. Values for sensitive fields are never consulted: the engine
// refuses sensitive writes before it looks anything up.
type Attributes map[AttributeKey]string

// synonymRule matches one attribute against field names and labels.
// Rules are evaluated in order and the first hit wins, so earlier rules
// take priority when a field could plausibly match several.
type synonymRule struct {
	key      AttributeKey
	synonyms []string // normalized: lowercase alphanumerics only
}

// synonymTable is the fixed matching table. Substrings compare against
// the normalized field name and label.
var synonymTable = []synonymRule{
	{AttrEmail, []string{"email", "emailaddress", "mail"}},
	{AttrFirstName, []string{"firstname", "fname", "givenname", "forename"}},
	{AttrLastName, []string{"lastname", "lname", "surname", "familyname"}},
	{AttrPhone, []string{"phone", "phonenumber", "mobile", "telephone", "tel"}},
	{AttrCompany, []string{"company", "companyname", "organization", "organisation", "business"}},
	{AttrWebsite, []string{"website", "url", "homepage", "site"}},
	{AttrZipCode, []string{"zipcode", "zip", "postalcode", "postcode"}},
	{AttrAddress, []string{"address", "street", "addressline"}},
	{AttrCity, []string{"city", "town", "locality"}},
	{AttrState, []string{"state", "province", "region"}},
	{AttrCountry, []string{"country"}},
	{AttrTaxID, []string{"taxid", "vat", "vatnumber", "ein", "taxnumber"}},
}
