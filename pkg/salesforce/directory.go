package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account represents a Salesforce Account record in the client/vendor
// directory. Type distinguishes clients from vendors.
type Account struct {
	ID        string `json:"Id" salesforce:"Id"`
	Name      string `json:"Name" salesforce:"Name"`
	Website   string `json:"Website" salesforce:"Website"`
	Industry  string `json:"Industry" salesforce:"Industry"`
	Phone     string `json:"Phone" salesforce:"Phone"`
	Type      string `json:"Type" salesforce:"Type"`
	AccountID string `json:"External_Org_Id__c" salesforce:"External_Org_Id__c"`
}

// accountFields are the SOQL fields selected for directory queries.
var accountFields = []string{
	"Id", "Name", "Website", "Industry", "Phone", "Type", "External_Org_Id__c",
}

// FetchAccountsByType queries all Accounts of the given Type ("Client" or
// "Vendor") for directory sync.
func FetchAccountsByType(ctx context.Context, c Client, accountType string) ([]Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Type = '%s'",
		strings.Join(accountFields, ", "),
		escapeSoql(accountType),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: fetch %s accounts", accountType))
	}
	return accounts, nil
}

// PushLead creates a Lead record in Salesforce from the given fields and
// returns the new Salesforce ID.
func PushLead(ctx context.Context, c Client, fields map[string]any) (string, error) {
	if fields["LastName"] == nil || fields["LastName"] == "" {
		return "", eris.New("sf: lead LastName is required")
	}
	id, err := c.InsertOne(ctx, "Lead", fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: push lead")
	}
	return id, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
