package codegen

import "strings"

// reserved variable names bound by statement lowering.
const (
	varWhereField       = "_where_field_"
	varWhereOp          = "_where_op_"
	varWhereValue       = "_where_value_"
	varAggregationType  = "_aggregation_type_"
	varAggregationField = "_aggregation_field_"
	varByPattern        = "_by_pattern_"
	varByFlags          = "_by_flags_"
	varTo               = "_to_"
	varWith             = "_with_"
	varResultExpression = "_result_expression_"
	varPublishAlias     = "_publish_alias_"
	varPublishVariable  = "_publish_variable_"
	varRequireVariable  = "_require_variable_"
	varRequireSource    = "_require_source_"
)

// sanitize lowercases n and replaces hyphens/spaces with underscores.
func sanitize(n string) string {
	n = strings.ToLower(n)
	n = strings.ReplaceAll(n, "-", "_")
	n = strings.ReplaceAll(n, " ", "_")
	return n
}

// functionName returns a feature set's emitted function name. A plain
// feature set gets aro_fs_<sanitized(name)>; an Application-Start
// feature set gets aro_fs_application_start_<sanitized(name)> instead,
// since every Application-Start feature set shares the same business
// activity literal and only its name tells two entry points apart.
func functionName(fsName, businessActivity string, isEntryPoint bool) string {
	if isEntryPoint {
		return "aro_fs_application_start_" + sanitize(fsName)
	}
	return "aro_fs_" + sanitize(fsName)
}

const (
	handlerSuffix  = " Handler"
	observerSuffix = " Observer"
	socketHandler  = "Socket Event" + handlerSuffix
	fileHandler    = "File Event" + handlerSuffix
	applicationEnd = "Application-End"
)

// excludedFromRegistration reports whether a business activity is one of
// the special activities excluded from automatic event/repository
// registration: Socket Event Handler, File Event Handler, and
// Application-End. These are invoked directly by the runtime's
// lifecycle instead.
func excludedFromRegistration(businessActivity string) bool {
	return strings.Contains(businessActivity, "Socket Event") ||
		strings.Contains(businessActivity, "File Event") ||
		strings.Contains(businessActivity, applicationEnd)
}
