package remote

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"
)

const ftpTimeout = 30 * time.Second

type FTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// ftpConn is the subset of *ftp.ServerConn used here.
type ftpConn interface {
	ChangeDir(path string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

// FTPStore uploads to a plain FTP server.
type FTPStore struct {
	conn ftpConn
}

// DialFTP connects and logs in.
func DialFTP(cfg FTPConfig) (*FTPStore, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(ftpTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ftp %s: %w", addr, err)
	}
	if err := conn.Login(cfg.User, cfg.Password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp login as %s failed: %w", cfg.User, err)
	}
	log.Printf("remote.ftp: connected to %s", addr)
	return &FTPStore{conn: conn}, nil
}

// EnsureDir walks dir from the root, creating each missing component.
func (s *FTPStore) EnsureDir(dir string) error {
	if err := s.conn.ChangeDir("/"); err != nil {
		return fmt.Errorf("ftp cwd /: %w", err)
	}
	for _, part := range splitDir(dir) {
		if err := s.conn.ChangeDir(part); err == nil {
			continue
		}
		if err := s.conn.MakeDir(part); err != nil {
			return fmt.Errorf("ftp mkdir %s in %s: %w", part, dir, err)
		}
		if err := s.conn.ChangeDir(part); err != nil {
			return fmt.Errorf("ftp cwd %s in %s: %w", part, dir, err)
		}
	}
	return nil
}

// Put stores localPath as remoteDir/name.
func (s *FTPStore) Put(localPath, remoteDir, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	target := path.Join("/", remoteDir, name)
	if err := s.conn.Stor(target, f); err != nil {
		return fmt.Errorf("ftp stor %s: %w", target, err)
	}
	return nil
}

func (s *FTPStore) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Quit()
}
