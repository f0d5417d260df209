package instrumentation

import "strings"

// ClusterType is a bounded classification of cluster identifiers used as a
// metric label. Cluster ids are operator-chosen and unbounded, so metrics
// and audit records fold them into one of these categories unless detailed
// labels are explicitly enabled.
type ClusterType string

const (
	ClusterTypeProduction  ClusterType = "production"
	ClusterTypeStaging     ClusterType = "staging"
	ClusterTypeDevelopment ClusterType = "development"
	ClusterTypeCICD        ClusterType = "cicd"
	ClusterTypeOperations  ClusterType = "operations"
	// ClusterTypeUnknown is returned for an empty identifier.
	ClusterTypeUnknown ClusterType = "unknown"
	// ClusterTypeOther is returned when no token matches.
	ClusterTypeOther ClusterType = "other"
)

// clusterTokenTypes maps id tokens to their classification. Tokens come
// from splitting the lowercased id on "-", "_" and ".".
var clusterTokenTypes = map[string]ClusterType{
	"prod":        ClusterTypeProduction,
	"production":  ClusterTypeProduction,
	"live":        ClusterTypeProduction,
	"staging":     ClusterTypeStaging,
	"stg":         ClusterTypeStaging,
	"dev":         ClusterTypeDevelopment,
	"development": ClusterTypeDevelopment,
	"demo":        ClusterTypeDevelopment,
	"test":        ClusterTypeDevelopment,
	"sandbox":     ClusterTypeDevelopment,
	"ops":         ClusterTypeOperations,
	"operations":  ClusterTypeOperations,
	"infra":       ClusterTypeOperations,
}

func isClusterIDSeparator(r rune) bool {
	return r == '-' || r == '_' || r == '.'
}

// ClassifyClusterName folds a cluster id into one of a fixed set of
// categories so cluster-derived label values stay bounded.
//
// Matching is case-insensitive and token-based: the id is split on "-", "_"
// and ".", and the leftmost recognized token decides the category
// ("prod-east-1" is production, "team-a.staging" is staging). CI/CD ids are
// special-cased by substring because they routinely embed "prod" or "dev"
// without separators (cicdprod, cicddev). Ids with no recognized token
// classify as "other"; an empty id is "unknown".
func ClassifyClusterName(name string) string {
	if name == "" {
		return string(ClusterTypeUnknown)
	}

	lower := strings.ToLower(name)
	if strings.Contains(lower, "cicd") {
		return string(ClusterTypeCICD)
	}

	for _, token := range strings.FieldsFunc(lower, isClusterIDSeparator) {
		if ct, ok := clusterTokenTypes[token]; ok {
			return string(ct)
		}
	}

	return string(ClusterTypeOther)
}
