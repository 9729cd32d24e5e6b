package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diewo77/go-bloodbank/internal/models"
)

// AccountList selects one of the admin account lists.
type AccountList string

const (
	DonorList        AccountList = "donor"
	HospitalList     AccountList = "hospital"
	OrganisationList AccountList = "organisation"
)

var adminLists = map[AccountList]struct{ path, key string }{
	DonorList:        {"/admin/donor-list", "donorData"},
	HospitalList:     {"/admin/hospital-list-with-stock", "hospitalData"},
	OrganisationList: {"/admin/org-list-with-stock", "orgData"},
}

// ParseAccountList accepts the list names used in console URLs.
func ParseAccountList(s string) (AccountList, bool) {
	switch s {
	case "donor", "donors":
		return DonorList, true
	case "hospital", "hospitals":
		return HospitalList, true
	case "organisation", "organisations", "org", "orgs":
		return OrganisationList, true
	}
	return "", false
}

// AdminAccounts lists accounts of one kind with their stock snapshot.
func (c *Client) AdminAccounts(ctx context.Context, list AccountList) ([]models.AdminListEntry, error) {
	src, ok := adminLists[list]
	if !ok {
		return nil, &RequestError{Op: "admin-list", Err: fmt.Errorf("unknown account list %q", list)}
	}
	var resp map[string]json.RawMessage
	if err := c.get(ctx, "admin-"+string(list)+"-list", src.path, nil, &resp); err != nil {
		return nil, err
	}
	var out []models.AdminListEntry
	if raw, ok := resp[src.key]; ok {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, &RequestError{Op: "admin-list", Err: err}
		}
	}
	return out, nil
}

// SetBlocked blocks or unblocks an account.
func (c *Client) SetBlocked(ctx context.Context, id string, blocked bool) (string, error) {
	action := "unblock"
	if blocked {
		action = "block"
	}
	var resp Message
	if err := c.put(ctx, "block-unblock", "/admin/block-unblock/"+escape(id), map[string]string{"action": action}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteAccount removes an account. The backend exposes a single delete
// route for every account kind.
func (c *Client) DeleteAccount(ctx context.Context, id string) (string, error) {
	var resp Message
	if err := c.del(ctx, "delete-account", "/admin/delete-donor/"+escape(id), &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
