package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/pathpolicy"
	"github.com/starford/taskvault/internal/reconciler"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	Index   SearchIndexConfig `yaml:"index"`
	Todoist TodoistConfig     `yaml:"todoist"`
	Auth    AuthConfig        `yaml:"auth"`
	Sync    SyncConfig        `yaml:"sync"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Todoist.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Sync.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the layout of the Markdown vault.
type VaultConfig struct {
	Path              string `yaml:"path"`
	TasksDir          string `yaml:"tasks_dir"`
	ProjectsDir       string `yaml:"projects_dir"`
	SectionsDir       string `yaml:"sections_dir"`
	CompletedDir      string `yaml:"completed_dir"`
	DeletedDir        string `yaml:"deleted_dir"`
	ProjectArchiveDir string `yaml:"project_archive_dir"`
	SectionArchiveDir string `yaml:"section_archive_dir"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	if c.TasksDir == "" {
		c.TasksDir = "Tasks"
	}
	if c.ProjectsDir == "" {
		c.ProjectsDir = "Tasks/Projects"
	}
	if c.SectionsDir == "" {
		c.SectionsDir = "Tasks/Sections"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SearchIndexConfig holds the derived search/graph cache configuration.
type SearchIndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the search index configuration.
func (c *SearchIndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// TodoistConfig holds the remote Todoist API client configuration.
type TodoistConfig struct {
	Token   string        `yaml:"token"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the Todoist configuration.
func (c *TodoistConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.todoist.com/rest/v2"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Token, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// SyncConfig holds every policy knob the reconciler consults.
type SyncConfig struct {
	Names frontmatter.PropNames `yaml:"-"`

	UseProjectSubfolders bool `yaml:"use_project_subfolders"`
	UseSectionSubfolder  bool `yaml:"use_section_subfolder"`
	AutoRenameFiles      bool `yaml:"auto_rename_files"`

	AssignedUID      string   `yaml:"assigned_uid"`
	RequiredLabel    string   `yaml:"required_label"`
	ExcludedLabel    string   `yaml:"excluded_label"`
	AllowedProjects  []string `yaml:"allowed_projects"`
	ExcludedProjects []string `yaml:"excluded_projects"`
	ExcludedSections []string `yaml:"excluded_sections"`

	ConflictPolicyLocalWins bool `yaml:"conflict_policy_local_wins"`

	TaskTemplate    string `yaml:"task_template"`
	ProjectTemplate string `yaml:"project_template"`
	SectionTemplate string `yaml:"section_template"`

	CompletedMode   string `yaml:"completed_mode"`
	DeletedMode     string `yaml:"deleted_mode"`
	CompletedFolder string `yaml:"completed_folder"`
	DeletedFolder   string `yaml:"deleted_folder"`

	ProjectArchiveFolder string `yaml:"project_archive_folder"`
	SectionArchiveFolder string `yaml:"section_archive_folder"`

	RecentlyDeletedLimit int           `yaml:"recently_deleted_limit"`
	PollInterval         time.Duration `yaml:"poll_interval"`
}

// Validate validates the sync configuration, filling in defaults for modes
// and limits left unset.
func (c *SyncConfig) Validate() error {
	if c.CompletedMode == "" {
		c.CompletedMode = string(reconciler.ModeMoveToFolder)
	}
	if c.DeletedMode == "" {
		c.DeletedMode = string(reconciler.ModeMoveToFolder)
	}
	if c.RecentlyDeletedLimit <= 0 {
		c.RecentlyDeletedLimit = 200
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.CompletedMode, validation.In(
			string(reconciler.ModeKeepInPlace), string(reconciler.ModeMoveToFolder), string(reconciler.ModeStopSyncing),
		)),
		validation.Field(&c.DeletedMode, validation.In(
			string(reconciler.ModeKeepInPlace), string(reconciler.ModeMoveToFolder), string(reconciler.ModeStopSyncing),
		)),
	)
}

// ReconcilerConfig projects this configuration into the shape
// reconciler.Run consumes.
func (c *Config) ReconcilerConfig() reconciler.Config {
	names := c.Sync.Names
	if names == (frontmatter.PropNames{}) {
		names = frontmatter.Default()
	}
	return reconciler.Config{
		Names: names,
		TaskFiles: pathpolicy.TaskFileConfig{
			BaseFolder:           c.Vault.TasksDir,
			UseProjectSubfolders: c.Sync.UseProjectSubfolders,
			UseSectionSubfolder:  c.Sync.UseSectionSubfolder,
		},
		AutoRenameFiles: c.Sync.AutoRenameFiles,
		Importable: reconciler.ImportableFilter{
			AssignedUID:      c.Sync.AssignedUID,
			RequiredLabel:    c.Sync.RequiredLabel,
			ExcludedLabel:    c.Sync.ExcludedLabel,
			AllowedProjects:  c.Sync.AllowedProjects,
			ExcludedProjects: c.Sync.ExcludedProjects,
			ExcludedSections: c.Sync.ExcludedSections,
		},
		ConflictPolicyLocalWins: c.Sync.ConflictPolicyLocalWins,
		TaskTemplate:            c.Sync.TaskTemplate,
		ProjectTemplate:         c.Sync.ProjectTemplate,
		SectionTemplate:         c.Sync.SectionTemplate,
		CompletedMode:           reconciler.MissingRemoteMode(c.Sync.CompletedMode),
		DeletedMode:             reconciler.MissingRemoteMode(c.Sync.DeletedMode),
		CompletedFolder:         c.Sync.CompletedFolder,
		DeletedFolder:           c.Sync.DeletedFolder,
		ProjectArchiveFolder:    c.Sync.ProjectArchiveFolder,
		SectionArchiveFolder:    c.Sync.SectionArchiveFolder,
		RecentlyDeletedLimit:    c.Sync.RecentlyDeletedLimit,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:        "./vault",
			TasksDir:    "Tasks",
			ProjectsDir: "Tasks/Projects",
			SectionsDir: "Tasks/Sections",
		},
		Index: SearchIndexConfig{
			Path: "./taskvault-index.db",
		},
		Todoist: TodoistConfig{
			BaseURL: "https://api.todoist.com/rest/v2",
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Sync: SyncConfig{
			CompletedMode:        string(reconciler.ModeMoveToFolder),
			DeletedMode:          string(reconciler.ModeMoveToFolder),
			CompletedFolder:      "Tasks/Completed",
			DeletedFolder:        "Tasks/Deleted",
			RecentlyDeletedLimit: 200,
			PollInterval:         2 * time.Second,
		},
	}
}
