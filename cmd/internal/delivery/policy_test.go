package delivery

import "testing"

func TestPolicy_Decide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		policy  Policy
		outcome Outcome
		want    Decision
	}{
		{
			name:    "delivered",
			policy:  Policy{},
			outcome: Outcome{Delivered: true, Transport: "smtps:465"},
			want:    Decision{ReportSuccess: true},
		},
		{
			name:    "delivered with fallback enabled still hides code",
			policy:  Policy{AllowCodeFallback: true},
			outcome: Outcome{Delivered: true, Transport: "smtps:465"},
			want:    Decision{ReportSuccess: true},
		},
		{
			name:    "failed without fallback",
			policy:  Policy{},
			outcome: Outcome{Reason: ReasonAllTransportsExhausted},
			want:    Decision{},
		},
		{
			name:    "failed with fallback exposes code",
			policy:  Policy{AllowCodeFallback: true},
			outcome: Outcome{Reason: ReasonAllTransportsExhausted},
			want:    Decision{ExposeCode: true},
		},
		{
			name:    "not configured with fallback exposes code",
			policy:  Policy{AllowCodeFallback: true},
			outcome: Outcome{Reason: ReasonNotConfigured},
			want:    Decision{ExposeCode: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.policy.Decide(tc.outcome); got != tc.want {
				t.Fatalf("Decide()=%+v want=%+v", got, tc.want)
			}
		})
	}
}
