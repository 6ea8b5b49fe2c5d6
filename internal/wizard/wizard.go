// Package wizard provides an interactive setup wizard for pongd.
package wizard

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/tinmesh/pongd/internal/config"
	"github.com/tinmesh/pongd/internal/protocol"
)

// Result contains the wizard output.
type Result struct {
	Config     *config.Config
	ConfigPath string
}

// Wizard manages the interactive setup process.
type Wizard struct {
	theme *huh.Theme
}

// New creates a new setup wizard.
func New() *Wizard {
	return &Wizard{
		theme: huh.ThemeDracula(),
	}
}

// Run executes the interactive setup wizard.
func (w *Wizard) Run() (*Result, error) {
	w.printBanner()

	// Step 1: Config location
	configPath, err := w.askConfigPath()
	if err != nil {
		return nil, err
	}

	// Step 2: Listener
	host, port, useIPv6, err := w.askListener()
	if err != nil {
		return nil, err
	}

	// Step 3: Responder identity
	banner, err := w.askBanner()
	if err != nil {
		return nil, err
	}

	// Step 4: Flash indicator
	indicator, err := w.askIndicator()
	if err != nil {
		return nil, err
	}

	// Step 5: Rate limiting
	limits, err := w.askLimits()
	if err != nil {
		return nil, err
	}

	// Step 6: Monitoring and logging
	healthEnabled, healthAddr, logLevel, err := w.askAdvancedOptions()
	if err != nil {
		return nil, err
	}

	// Build configuration
	cfg := w.buildConfig(host, port, useIPv6, banner, indicator, limits, healthEnabled, healthAddr, logLevel)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generated configuration is invalid: %w", err)
	}

	// Write configuration file
	if err := w.writeConfig(cfg, configPath); err != nil {
		return nil, err
	}

	// Print summary
	w.printSummary(configPath, cfg)

	return &Result{
		Config:     cfg,
		ConfigPath: configPath,
	}, nil
}

func (w *Wizard) printBanner() {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Render(`
  _ __   ___  _ __   __ _  __| |
 | '_ \ / _ \| '_ \ / _' |/ _' |
 | |_) | (_) | | | | (_| | (_| |
 | .__/ \___/|_| |_|\__, |\__,_|
 |_|                |___/
`)

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("  Passive 2ping Responder - Setup Wizard\n")

	fmt.Println(banner)
	fmt.Println(subtitle)
}

func (w *Wizard) askConfigPath() (configPath string, err error) {
	configPath = "./config.yaml"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Basic Setup").
				Description("Choose where to write the configuration file."),

			huh.NewInput().
				Title("Config File Path").
				Placeholder("./config.yaml").
				Value(&configPath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("config path is required")
					}
					if !strings.HasSuffix(s, ".yaml") && !strings.HasSuffix(s, ".yml") {
						return fmt.Errorf("config file should have .yaml or .yml extension")
					}
					return nil
				}),
		),
	).WithTheme(w.theme)

	err = form.Run()
	return
}

func (w *Wizard) askListener() (host string, port int, useIPv6 bool, err error) {
	host = "0.0.0.0"
	portStr := "15998"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Listener").
				Description("Configure the UDP socket the responder listens on."),

			huh.NewInput().
				Title("Bind Address").
				Description("Host or address to bind (use :: for IPv6)").
				Placeholder("0.0.0.0").
				Value(&host).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("bind address is required")
					}
					if net.ParseIP(s) == nil {
						return fmt.Errorf("invalid IP address")
					}
					return nil
				}),

			huh.NewInput().
				Title("Port").
				Description("UDP port (2ping default is 15998)").
				Placeholder("15998").
				Value(&portStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 65535 {
						return fmt.Errorf("port must be between 1 and 65535")
					}
					return nil
				}),

			huh.NewConfirm().
				Title("Use IPv6?").
				Description("Bind an IPv6 socket instead of IPv4").
				Value(&useIPv6),
		),
	).WithTheme(w.theme)

	if err = form.Run(); err != nil {
		return
	}

	port, err = strconv.Atoi(portStr)
	return
}

func (w *Wizard) askBanner() (banner string, err error) {
	banner = "pongd"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Responder Identity").
				Description("The banner is sent in every reply's version block."),

			huh.NewInput().
				Title("Banner").
				Description(fmt.Sprintf("Program version string (max %d bytes)", protocol.MaxBannerLen)).
				Placeholder("pongd").
				Value(&banner).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("banner is required")
					}
					if len(s) > protocol.MaxBannerLen {
						return fmt.Errorf("banner must be at most %d bytes", protocol.MaxBannerLen)
					}
					return nil
				}),
		),
	).WithTheme(w.theme)

	err = form.Run()
	return
}

func (w *Wizard) askIndicator() (cfg config.IndicatorConfig, err error) {
	cfg.LEDPath = "/sys/class/leds/led0/brightness"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Flash Indicator").
				Description("Blink a sysfs LED while each datagram is processed.\nUseful on single-board hardware."),

			huh.NewConfirm().
				Title("Enable LED indicator?").
				Value(&cfg.Enabled),
		),
	).WithTheme(w.theme)

	if err = form.Run(); err != nil {
		return
	}

	if !cfg.Enabled {
		return
	}

	ledForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("LED Brightness Path").
				Placeholder("/sys/class/leds/led0/brightness").
				Value(&cfg.LEDPath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("LED path is required")
					}
					return nil
				}),

			huh.NewConfirm().
				Title("Active low?").
				Description("Write 0 to light the LED and 1 to darken it").
				Value(&cfg.ActiveLow),
		),
	).WithTheme(w.theme)

	err = ledForm.Run()
	return
}

func (w *Wizard) askLimits() (cfg config.LimitsConfig, err error) {
	cfg = config.Default().Limits
	var enableLimit bool
	rateStr := "10"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Rate Limiting").
				Description("Cap replies per source host to bound amplification.\nDisabled by default."),

			huh.NewConfirm().
				Title("Enable per-peer reply rate limit?").
				Value(&enableLimit),
		),
	).WithTheme(w.theme)

	if err = form.Run(); err != nil {
		return
	}

	if !enableLimit {
		cfg.ReplyRate = 0
		return
	}

	rateForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Replies per second per peer").
				Placeholder("10").
				Value(&rateStr).
				Validate(func(s string) error {
					n, err := strconv.ParseFloat(s, 64)
					if err != nil || n <= 0 {
						return fmt.Errorf("rate must be a positive number")
					}
					return nil
				}),
		),
	).WithTheme(w.theme)

	if err = rateForm.Run(); err != nil {
		return
	}

	cfg.ReplyRate, err = strconv.ParseFloat(rateStr, 64)
	return
}

func (w *Wizard) askAdvancedOptions() (healthEnabled bool, healthAddr, logLevel string, err error) {
	healthAddr = ":8081"
	logLevel = "info"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Monitoring").
				Description("Configure the status endpoint and logging."),

			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("Debug (verbose)", "debug"),
					huh.NewOption("Info (recommended)", "info"),
					huh.NewOption("Warning", "warn"),
					huh.NewOption("Error (quiet)", "error"),
				).
				Value(&logLevel),

			huh.NewConfirm().
				Title("Enable status endpoint?").
				Description("HTTP endpoints for monitoring (/healthz, /status, /metrics)").
				Value(&healthEnabled),
		),
	).WithTheme(w.theme)

	if err = form.Run(); err != nil {
		return
	}

	if !healthEnabled {
		return
	}

	addrForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Status Listen Address").
				Placeholder(":8081").
				Value(&healthAddr).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("status address is required")
					}
					_, _, err := net.SplitHostPort(s)
					if err != nil {
						return fmt.Errorf("invalid address format (use host:port)")
					}
					return nil
				}),
		),
	).WithTheme(w.theme)

	err = addrForm.Run()
	return
}

func (w *Wizard) buildConfig(
	host string, port int, useIPv6 bool,
	banner string,
	indicator config.IndicatorConfig,
	limits config.LimitsConfig,
	healthEnabled bool, healthAddr, logLevel string,
) *config.Config {
	cfg := config.Default()

	cfg.Listener.Host = host
	cfg.Listener.Port = port
	cfg.Listener.UseIPv6 = useIPv6

	cfg.Responder.Banner = banner

	cfg.Indicator = indicator

	cfg.Limits = limits

	cfg.Health.Enabled = healthEnabled
	if healthEnabled {
		cfg.Health.Address = healthAddr
	}

	cfg.Log.Level = logLevel
	cfg.Log.Format = "text"

	return cfg
}

func (w *Wizard) writeConfig(cfg *config.Config, path string) error {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Add header comment
	header := `# pongd Configuration
# Generated by setup wizard

`
	if err := os.WriteFile(path, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (w *Wizard) printSummary(configPath string, cfg *config.Config) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("42"))

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("─────────────────────────────────────────────────")

	fmt.Println()
	fmt.Println(divider)
	fmt.Println(style.Render("✓ Setup Complete!"))
	fmt.Println(divider)
	fmt.Println()

	fmt.Printf("  Config file:  %s\n", configPath)
	fmt.Printf("  Listener:     %s/%s\n", cfg.Network(), cfg.ListenAddr())
	fmt.Printf("  Banner:       %s\n", cfg.Responder.Banner)

	if cfg.Indicator.Enabled {
		fmt.Printf("  Indicator:    %s\n", cfg.Indicator.LEDPath)
	}

	if cfg.Limits.ReplyRate > 0 {
		fmt.Printf("  Rate limit:   %.1f replies/s per peer\n", cfg.Limits.ReplyRate)
	}

	if cfg.Health.Enabled {
		fmt.Printf("  Status:       http://%s/status\n", cfg.Health.Address)
	}

	fmt.Println()
	fmt.Println("  To start the responder:")
	fmt.Printf("    pongd run -c %s\n", configPath)
	fmt.Println()
}
