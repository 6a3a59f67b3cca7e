package domain

import "testing"

func TestResolveEntityTypeFirstPatternWins(t *testing.T) {
	profile := DefaultRetrievalProfile()

	cases := []struct {
		request string
		want    string
	}{
		{"some bug request", "Bug"},
		{"create a rule for user story state changes", "UserStory"},
		{"escalate the portfolio epic when it slips", "PortfolioEpic"},
		{"notify on epic completion", "Epic"},
		{"handle the service request queue", "Request"},
		{"something with no entity at all", ""},
	}
	for _, tc := range cases {
		if got := profile.ResolveEntityType(tc.request, nil); got != tc.want {
			t.Fatalf("ResolveEntityType(%q) = %q, want %q", tc.request, got, tc.want)
		}
	}
}

func TestResolveEntityTypeDomainContextOverride(t *testing.T) {
	profile := DefaultRetrievalProfile()

	got := profile.ResolveEntityType("a bug rule", map[string]string{"entityType": "Feature"})
	if got != "Feature" {
		t.Fatalf("context override ignored: %q", got)
	}
}
