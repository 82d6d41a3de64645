package model

// Actor 当前请求的身份与套餐信息，由认证中间件加载一次后显式传给各个 service
type Actor struct {
	ID       int64
	Email    string
	Name     string
	Role     string
	Tier     string
	IsActive bool
}

func (a *Actor) IsMerchant() bool {
	return a != nil && a.Role == RoleMerchant
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

func (a *Actor) IsCustomer() bool {
	return a != nil && a.Role == RoleCustomer
}
