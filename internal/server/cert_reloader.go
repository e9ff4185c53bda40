package server

import (
	"crypto/tls"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumeforge/internal/errors"
)

// CertReloader serves a key pair loaded from disk and reloads it when the
// files change. A failed reload keeps the previous certificate.
type CertReloader struct {
	mu   sync.RWMutex
	cert *tls.Certificate

	certFile string
	keyFile  string

	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	timerMu       sync.Mutex

	stopOnce sync.Once
	stopChan chan struct{}
	logger   *errors.Logger
}

// NewCertReloader loads the key pair once. Call Start to begin watching.
func NewCertReloader(certFile, keyFile string, logger *errors.Logger) (*CertReloader, error) {
	certFile, _ = filepath.Abs(certFile)
	keyFile, _ = filepath.Abs(keyFile)
	r := &CertReloader{
		certFile:      certFile,
		keyFile:       keyFile,
		debounceDelay: 500 * time.Millisecond,
		stopChan:      make(chan struct{}),
		logger:        logger,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload reads the key pair from disk and swaps it in.
func (r *CertReloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key from files: %w", err)
	}
	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// Start watches the directories holding the certificate and key.
func (r *CertReloader) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create certificate watcher: %w", err)
	}

	var dirs []string
	for _, f := range []string{r.certFile, r.keyFile} {
		dir := filepath.Dir(f)
		if slices.Contains(dirs, dir) {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		dirs = append(dirs, dir)
	}

	r.watcher = watcher
	go r.watchLoop()
	r.logger.Info("Certificate watcher started", "cert_file", r.certFile, "key_file", r.keyFile)
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (r *CertReloader) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.stopChan)
		r.timerMu.Lock()
		if r.debounceTimer != nil {
			r.debounceTimer.Stop()
		}
		r.timerMu.Unlock()
		if r.watcher != nil {
			err = r.watcher.Close()
		}
	})
	return err
}

func (r *CertReloader) watchLoop() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if r.relevant(event) {
				r.scheduleReload()
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.LogError(err, "Certificate watcher error")
		case <-r.stopChan:
			return
		}
	}
}

func (r *CertReloader) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil {
		name = event.Name
	}
	if name != r.certFile && name != r.keyFile {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// scheduleReload debounces reloads so a cert and key written together are
// read once.
func (r *CertReloader) scheduleReload() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}
	r.debounceTimer = time.AfterFunc(r.debounceDelay, func() {
		select {
		case <-r.stopChan:
			return
		default:
		}
		if err := r.Reload(); err != nil {
			r.logger.LogError(err, "Certificate reload failed, keeping previous certificate")
			return
		}
		r.logger.Info("TLS certificates reloaded successfully")
	})
}
