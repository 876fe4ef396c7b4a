package config

import "time"

// DashboardConfig holds runtime configuration for the dashboard service.
type DashboardConfig struct {
	Environment          string
	Addr                 string
	LogLevel             string
	CubeConnectionString string
	CubeSimpleProtocol   bool
	CubeMaxOpenConns     int
	QueryBudget          int
	QueryBudgetWindow    time.Duration
	BudgetRedisAddr      string
	BudgetRedisPass      string
	BudgetRedisDB        int
}

// LoadDashboardConfig constructs a DashboardConfig from environment variables.
func LoadDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Environment:          GetString("APP_ENV", "development"),
		Addr:                 GetString("DASHBOARD_ADDR", ":8501"),
		LogLevel:             GetString("LOG_LEVEL", "info"),
		CubeConnectionString: GetSecret("CUBE_CONNECTION_STRING"),
		CubeSimpleProtocol:   GetBool("CUBE_SIMPLE_PROTOCOL", true),
		CubeMaxOpenConns:     GetInt("CUBE_MAX_OPEN_CONNS", 4),
		QueryBudget:          GetInt("QUERY_BUDGET", 120),
		QueryBudgetWindow:    GetDuration("QUERY_BUDGET_WINDOW", time.Minute),
		BudgetRedisAddr:      GetString("QUERY_BUDGET_REDIS_ADDR", ""),
		BudgetRedisPass:      GetString("QUERY_BUDGET_REDIS_PASSWORD", ""),
		BudgetRedisDB:        GetInt("QUERY_BUDGET_REDIS_DB", 0),
	}
}
