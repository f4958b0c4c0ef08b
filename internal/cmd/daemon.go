package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/inputmux/inputmuxd/internal/busapi"
	"github.com/inputmux/inputmuxd/internal/configpaths"
	"github.com/inputmux/inputmuxd/internal/log"
	"github.com/inputmux/inputmuxd/internal/server/api/auth"
	"github.com/inputmux/inputmuxd/pkg/manager"

	"log/slog"
)

const keyFileName = "inputmuxd.key.txt"

// Daemon runs the manager (C7) and the control bus server together; this is
// inputmuxd's normal running mode.
type Daemon struct {
	Bus busapi.ServerConfig `embed:"" prefix:"bus."`
}

// Run is called by Kong when the daemon command is executed.
func (d *Daemon) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return d.start(ctx, logger, rawLogger)
}

func (d *Daemon) start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	keyFileDir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("failed to resolve key file path: %w", err)
	}
	keyFilePath := path.Join(keyFileDir, keyFileName)
	if pwd, err := os.ReadFile(keyFilePath); err == nil {
		d.Bus.Password = strings.TrimSpace(string(pwd))
	} else {
		newPwd, err := auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate new control bus password: %w", err)
		}
		if err := os.MkdirAll(keyFileDir, 0o700); err != nil {
			return fmt.Errorf("failed to create config dir for key file: %w", err)
		}
		if err := os.WriteFile(keyFilePath, []byte(newPwd), 0o600); err != nil {
			return fmt.Errorf("failed to write new control bus password to file: %w", err)
		}
		d.Bus.Password = newPwd
		logger.Info("generated control bus password", "path", keyFilePath)
		logger.Info("-------------------------------------")
		logger.Info("Your inputmuxd control bus password is:")
		logger.Info("-------------------------------------")
		logger.Info(newPwd)
		logger.Info("-------------------------------------")
	}

	mgr, err := manager.New(logger)
	if err != nil {
		return fmt.Errorf("failed to initialize manager: %w", err)
	}
	mgr.SetTracer(log.NewEventTracer(rawLogger))

	mgrErrCh := make(chan error, 1)
	go func() {
		mgrErrCh <- mgr.Run(ctx)
	}()

	if d.Bus.Addr == "" {
		logger.Error("control bus listen address must be set (default :7890)")
		return fmt.Errorf("control bus listen address must be set")
	}

	busSrv := busapi.New(mgr, d.Bus.Addr, d.Bus, logger)
	if err := busSrv.Start(); err != nil {
		logger.Error("failed to start control bus", "error", err)
		return err
	}

	logger.Info("inputmuxd running", "bus_addr", busSrv.Addr())

	select {
	case <-ctx.Done():
		busSrv.Close()
		err := <-mgrErrCh
		return err
	case err := <-mgrErrCh:
		busSrv.Close()
		return err
	}
}
