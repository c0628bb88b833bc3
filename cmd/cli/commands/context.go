package commands

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/fieldcrew/shiftlog/internal/config"
	"github.com/fieldcrew/shiftlog/pkg/clients/sheetsclient"
	"github.com/fieldcrew/shiftlog/pkg/core/clock"
	"github.com/fieldcrew/shiftlog/pkg/core/sessions"
	"github.com/fieldcrew/shiftlog/pkg/db"
	"github.com/fieldcrew/shiftlog/pkg/identity"
	"github.com/fieldcrew/shiftlog/pkg/sheetssql"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg          *config.Config
	Database     db.Database
	Manager      *sessions.Manager
	Identity     *identity.Context
	SheetsClient *sheetsclient.Client  // nil unless report.sheetID or roster is configured
	RosterSheet  sheetssql.ValueGetter // nil unless roster is configured
	Location     *time.Location
	Now          clock.Now
	Logger       *zap.Logger
	Out          io.Writer
	Ctx          context.Context
}
