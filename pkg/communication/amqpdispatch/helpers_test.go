package amqpdispatch_test

import "github.com/dmitrymomot/apimgmt/pkg/directory"

func newDirectory() *directory.Memory {
	d := directory.NewMemory()
	d.AddMembership(directory.Membership{
		UserID:        "admin",
		ReferenceType: directory.ReferenceManagement,
		ReferenceID:   "DEFAULT",
		RoleScope:     directory.RoleScopeManagement,
		RoleName:      "ADMIN",
	})
	return d
}
