package sftp

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/williamokano/bucketview/pkg/storage"
)

const (
	defaultPort = 22
	dialTimeout = 30 * time.Second
)

// clientConfig builds the SSH login for an endpoint. The access key is the user
// name. The secret key is either a password or a PEM encoded private key.
func clientConfig(ep storage.Endpoint) (*ssh.ClientConfig, error) {
	if ep.AccessKey == "" {
		return nil, fmt.Errorf("%w: user name (access key) is required", storage.ErrInvalidConfig)
	}

	cfg := &ssh.ClientConfig{
		User:            ep.AccessKey,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: pin host keys per profile once profiles can store one
		Timeout:         dialTimeout,
	}

	if strings.HasPrefix(strings.TrimSpace(ep.SecretKey), "-----BEGIN") {
		signer, err := ssh.ParsePrivateKey([]byte(ep.SecretKey))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse SSH key: %w", storage.ErrInvalidConfig, err)
		}
		cfg.Auth = append(cfg.Auth, ssh.PublicKeys(signer))
	} else if ep.SecretKey != "" {
		cfg.Auth = append(cfg.Auth, ssh.Password(ep.SecretKey))
	}

	return cfg, nil
}

// address returns host:port with the SSH default port filled in
func address(ep storage.Endpoint) string {
	if ep.Port <= 0 {
		ep.Port = defaultPort
	}
	return ep.HostPort()
}
