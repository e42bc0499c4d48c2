package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "operations",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/rewards", Action: "*"},
				{Object: "/admin/rewards/:id", Action: "*"},
				{Object: "/admin/gift-links", Action: "*"},
				{Object: "/admin/gift-links/:id", Action: "*"},
				{Object: "/admin/gift-links/:id/disable", Action: "POST"},
				{Object: "/admin/redemptions", Action: "*"},
				{Object: "/admin/redemptions/:id/deliver", Action: "POST"},
				{Object: "/admin/redemptions/:id/revert", Action: "POST"},
				{Object: "/admin/settings", Action: "*"},
			},
		},
		{
			Role:     "support",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/members", Action: "*"},
				{Object: "/admin/members/:id", Action: "*"},
				{Object: "/admin/members/:id/grant", Action: "POST"},
				{Object: "/admin/ledger", Action: "GET"},
				{Object: "/admin/referrals", Action: "GET"},
				{Object: "/admin/notifications", Action: "GET"},
			},
		},
		{
			Role:     "integrations",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/sync-jobs", Action: "GET"},
				{Object: "/admin/sync-jobs/:id", Action: "GET"},
				{Object: "/admin/sync-jobs/:id/retry", Action: "POST"},
				{Object: "/admin/sync-jobs/reclaim", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
