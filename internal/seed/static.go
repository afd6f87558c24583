// ABOUTME: Static fallback data when the OpenAI API key is not available.
// ABOUTME: Provides the group tree and a rotating set of admin accounts.

package seed

import "fmt"

var staticGroups = []GroupData{
	{ID: 1, Name: "Administrators"},
	{ID: 2, Name: "Super Admin", ParentID: 1},
	{ID: 3, Name: "Editors", ParentID: 1},
	{ID: 4, Name: "Operations"},
	{ID: 5, Name: "Support", ParentID: 4},
	{ID: 6, Name: "Billing", ParentID: 4},
}

// Groups returns the fixed group tree, parents before children.
func Groups() []GroupData {
	return append([]GroupData(nil), staticGroups...)
}

var staticAdmins = []AdminData{
	{Username: "admin", DisplayName: "Site Administrator", Status: true, Groups: []string{"Super Admin"}},
	{Username: "alice.chen", DisplayName: "Alice Chen", Status: true, Groups: []string{"Editors"}},
	{Username: "bob.martinez", DisplayName: "Bob Martinez", Status: true, Groups: []string{"Support"}},
	{Username: "sarah.johnson", DisplayName: "Sarah Johnson", Status: false, Groups: []string{"Billing"}},
	{Username: "dave.wilson", DisplayName: "Dave Wilson", Status: true, Groups: []string{"Editors", "Support"}},
	{Username: "jenna.taylor", DisplayName: "Jenna Taylor", Status: true, Groups: []string{"Operations"}},
	{Username: "mike.brown", DisplayName: "Mike Brown", Status: false, Groups: []string{"Support"}},
	{Username: "alex.rivera", DisplayName: "Alex Rivera", Status: true, Groups: []string{"Administrators"}},
	{Username: "emma.davis", DisplayName: "Emma Davis", Status: true, Groups: []string{"Billing"}},
	{Username: "chris.lee", DisplayName: "Chris Lee", Status: true, Groups: []string{"Editors"}},
	{Username: "jane.kim", DisplayName: "Jane Kim", Status: false, Groups: []string{"Operations", "Billing"}},
	{Username: "omar.haddad", DisplayName: "Omar Haddad", Status: true, Groups: []string{"Support"}},
	{Username: "priya.nair", DisplayName: "Priya Nair", Status: true, Groups: []string{"Super Admin"}},
	{Username: "lucas.silva", DisplayName: "Lucas Silva", Status: true, Groups: []string{"Editors"}},
	{Username: "mei.tanaka", DisplayName: "Mei Tanaka", Status: false, Groups: []string{"Support"}},
}

// generateStaticAdmins cycles through the fixed accounts. Usernames past the
// first round get a numeric suffix so they stay unique.
func generateStaticAdmins(count int) []AdminData {
	out := make([]AdminData, 0, count)
	for i := 0; i < count; i++ {
		a := staticAdmins[i%len(staticAdmins)]
		if round := i / len(staticAdmins); round > 0 {
			a.Username = fmt.Sprintf("%s%d", a.Username, round+1)
		}
		a.Groups = append([]string(nil), a.Groups...)
		out = append(out, a)
	}
	return out
}
