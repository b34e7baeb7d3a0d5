package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// ME formula strategies selectable via ME_FORMULA.
const (
	MEFormulaAtwater       = "atwater"
	MEFormulaAtwaterKcalKg = "atwater_kcal_kg"
	MEFormulaLegacyNFE     = "legacy_nfe"
)

// Promotion scopes selectable via PROMOTION_SCOPE.
const (
	PromotionScopeSample          = "sample"
	PromotionScopeClientParameter = "client_parameter"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// Laboratory identity used in notifications and certificate output.
	LabName      string `mapstructure:"LAB_NAME"`
	ManagerEmail string `mapstructure:"MANAGER_EMAIL"`

	// Derived-value calculation: which catalog parameters receive the
	// computed carbohydrate and metabolizable-energy results, and which
	// formula variant produces the ME value.
	DerivedCHOParameter string `mapstructure:"DERIVED_CHO_PARAMETER"`
	DerivedMEParameter  string `mapstructure:"DERIVED_ME_PARAMETER"`
	MEFormula           string `mapstructure:"ME_FORMULA"`

	// PromotionScope selects how sample promotion evaluates completion:
	// per sample, or across a client's assignments for one parameter.
	PromotionScope string `mapstructure:"PROMOTION_SCOPE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LAB_NAME", "JG Laboratory Services")
	v.SetDefault("DERIVED_CHO_PARAMETER", "Carbohydrate")
	v.SetDefault("DERIVED_ME_PARAMETER", "ME")
	v.SetDefault("ME_FORMULA", MEFormulaAtwater)
	v.SetDefault("PROMOTION_SCOPE", PromotionScopeSample)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("LAB_NAME")
	v.BindEnv("MANAGER_EMAIL")
	v.BindEnv("DERIVED_CHO_PARAMETER")
	v.BindEnv("DERIVED_ME_PARAMETER")
	v.BindEnv("ME_FORMULA")
	v.BindEnv("PROMOTION_SCOPE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// mode JWT_SECRET must be set so real authentication is enforced, and the
// workflow knobs must name known strategies — the server refuses to start on
// an unrecognized formula or scope rather than silently falling back.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when ENV is %q. "+
				"Refusing to start without authentication configuration", c.Env)
	}

	switch c.MEFormula {
	case MEFormulaAtwater, MEFormulaAtwaterKcalKg, MEFormulaLegacyNFE:
	default:
		return fmt.Errorf("ME_FORMULA must be %q, %q, or %q, got %q",
			MEFormulaAtwater, MEFormulaAtwaterKcalKg, MEFormulaLegacyNFE, c.MEFormula)
	}

	switch c.PromotionScope {
	case PromotionScopeSample, PromotionScopeClientParameter:
	default:
		return fmt.Errorf("PROMOTION_SCOPE must be %q or %q, got %q",
			PromotionScopeSample, PromotionScopeClientParameter, c.PromotionScope)
	}

	if c.DerivedCHOParameter == "" {
		return fmt.Errorf("DERIVED_CHO_PARAMETER must not be empty")
	}
	if c.DerivedMEParameter == "" {
		return fmt.Errorf("DERIVED_ME_PARAMETER must not be empty")
	}

	return nil
}
