/*
scheduler.go - Automatic backup scheduler

PURPOSE:
  Periodically checks whether an automatic backup is due (based on the
  configured frequency and the last backup timestamp) and creates one.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips when auto-backup is disabled or no data exists yet
  - The backup manager owns rotation and timestamp bookkeeping;
    the scheduler only decides WHEN to fire

CONFIGURATION:
  - CheckInterval: How often to check (default: 10 minutes)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewBackupScheduler(manager)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - backup/backup.go: ShouldAutoBackup decision, Manager.Create
  - handlers.go: manual backup endpoints
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/digitalsociety/dues-engine/backup"
)

// BackupScheduler fires automatic backups on a timer.
type BackupScheduler struct {
	Backups       *backup.Manager
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBackupScheduler creates a new scheduler.
func NewBackupScheduler(backups *backup.Manager) *BackupScheduler {
	return &BackupScheduler{
		Backups:       backups,
		CheckInterval: 10 * time.Minute,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (bs *BackupScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.wg.Add(1)

	go bs.run()

	log.Printf("[Scheduler] Started with check interval: %v", bs.CheckInterval)
}

// Stop stops the scheduler.
func (bs *BackupScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (bs *BackupScheduler) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.checkAndBackup()

	for {
		select {
		case <-bs.ticker.C:
			bs.checkAndBackup()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BackupScheduler) checkAndBackup() {
	ctx := context.Background()
	now := time.Now()

	settings, err := bs.Backups.Settings(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error loading backup settings: %v", err)
		return
	}

	hasData, err := bs.Backups.HasAnyData(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error checking for data: %v", err)
		return
	}

	if !backup.ShouldAutoBackup(settings, now, hasData) {
		return
	}

	snap, err := bs.Backups.Create(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error creating automatic backup: %v", err)
		return
	}
	log.Printf("[Scheduler] Automatic backup created at %d (%s frequency)",
		snap.Timestamp, settings.Frequency)
}

// RunNow triggers an immediate check (for testing/admin).
func (bs *BackupScheduler) RunNow() {
	bs.checkAndBackup()
}
