package domain

type ResourceKind string

const (
	KindScheduledQueryAlert ResourceKind = "ScheduledQueryAlert"
	KindDiagnosticSetting   ResourceKind = "DiagnosticSetting"
	KindDataCollectionRule  ResourceKind = "DataCollectionRule"
	KindActionGroup         ResourceKind = "ActionGroup"
)

func (rk ResourceKind) String() string {
	return string(rk)
}

func (rk ResourceKind) Valid() bool {
	switch rk {
	case KindScheduledQueryAlert, KindDiagnosticSetting, KindDataCollectionRule, KindActionGroup:
		return true
	}
	return false
}

// AllKinds is ordered so that dependency targets (the action group) are
// reconciled before the alerts that reference them.
func AllKinds() []ResourceKind {
	return []ResourceKind{
		KindActionGroup,
		KindDataCollectionRule,
		KindDiagnosticSetting,
		KindScheduledQueryAlert,
	}
}
