package entity

// DesignerClaims is the identity a dashboard token carries. Designer
// accounts, roles and billing live in the out-of-scope designer service;
// the scan pipeline only needs to know who owns a session and what name
// to show the subject.
type DesignerClaims struct {
	ID           string
	Name         string
	BusinessName string
	Email        string
}
