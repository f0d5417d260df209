package instrumentation

import "testing"

func TestClassifyClusterName(t *testing.T) {
	tests := []struct {
		input string
		want  ClusterType
	}{
		{"", ClusterTypeUnknown},

		// CI/CD ids match by substring, before any token lookup.
		{"cicdprod", ClusterTypeCICD},
		{"cicddev", ClusterTypeCICD},

		{"prod-east-1", ClusterTypeProduction},
		{"prod_cluster", ClusterTypeProduction},
		{"my-production-cluster", ClusterTypeProduction},
		{"us-east-prod-01", ClusterTypeProduction},
		{"PROD-CLUSTER", ClusterTypeProduction},
		{"live-eu", ClusterTypeProduction},

		{"staging-cluster", ClusterTypeStaging},
		{"staging_01", ClusterTypeStaging},
		{"stg-east-1", ClusterTypeStaging},
		{"team-a.staging", ClusterTypeStaging},

		{"dev-cluster", ClusterTypeDevelopment},
		{"development-env", ClusterTypeDevelopment},
		{"us-west-dev-01", ClusterTypeDevelopment},
		{"sandbox", ClusterTypeDevelopment},
		{"demo-east", ClusterTypeDevelopment},

		{"operations-cluster", ClusterTypeOperations},
		{"infra-ops", ClusterTypeOperations},
		{"ops", ClusterTypeOperations},

		// The leftmost recognized token decides.
		{"dev-prod", ClusterTypeDevelopment},

		{"my-cluster", ClusterTypeOther},
		{"cluster-123", ClusterTypeOther},
		{"us-east-1-cluster", ClusterTypeOther},
		{"team-alpha-cluster", ClusterTypeOther},
	}

	for _, tt := range tests {
		name := tt.input
		if name == "" {
			name = "(empty)"
		}
		t.Run(name, func(t *testing.T) {
			if got := ClassifyClusterName(tt.input); got != string(tt.want) {
				t.Errorf("ClassifyClusterName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyClusterNameCoversEveryType(t *testing.T) {
	// Each category must be reachable, or the label set silently shrinks.
	inputs := map[ClusterType]string{
		ClusterTypeProduction:  "prod-1",
		ClusterTypeStaging:     "stg-1",
		ClusterTypeDevelopment: "dev-1",
		ClusterTypeCICD:        "cicd-1",
		ClusterTypeOperations:  "ops-1",
		ClusterTypeUnknown:     "",
		ClusterTypeOther:       "zeta",
	}

	for want, input := range inputs {
		if got := ClassifyClusterName(input); got != string(want) {
			t.Errorf("ClassifyClusterName(%q) = %q, want %q", input, got, want)
		}
	}
}
