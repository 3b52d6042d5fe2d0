package hdfs

import (
	"errors"
	"fmt"
	"strings"

	krb "github.com/jcmturner/gokrb5/v8/client"
	krbconfig "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
)

const defaultKrb5Conf = "/etc/krb5.conf"

// KerberosLogin obtains a ticket-granting ticket for principal. It is the
// kinit step run before connecting and blocks until the KDC answers.
type KerberosLogin func(principal, keytabPath, krb5ConfPath string) (*krb.Client, error)

// KeytabLogin logs in with a keytab file using gokrb5.
func KeytabLogin(principal, keytabPath, krb5ConfPath string) (*krb.Client, error) {
	if principal == "" {
		return nil, errors.New("kerberos principal is required")
	}
	if keytabPath == "" {
		return nil, errors.New("kerberos keytab is required")
	}

	kt, err := keytab.Load(keytabPath)
	if err != nil {
		return nil, fmt.Errorf("load keytab %s: %w", keytabPath, err)
	}
	cfg, err := krbconfig.Load(krb5ConfPath)
	if err != nil {
		return nil, fmt.Errorf("load krb5 config %s: %w", krb5ConfPath, err)
	}

	username, realm := SplitPrincipal(principal)
	if realm == "" {
		realm = cfg.LibDefaults.DefaultRealm
	}
	if realm == "" {
		return nil, fmt.Errorf("no realm in principal %q and no default_realm configured", principal)
	}

	client := krb.NewWithKeytab(username, realm, kt, cfg, krb.DisablePAFXFAST(true))
	if err := client.Login(); err != nil {
		return nil, fmt.Errorf("login as %s@%s: %w", username, realm, err)
	}
	return client, nil
}

// SplitPrincipal splits "user/host@REALM" into "user/host" and "REALM".
func SplitPrincipal(principal string) (string, string) {
	i := strings.LastIndexByte(principal, '@')
	if i < 0 {
		return principal, ""
	}
	return principal[:i], principal[i+1:]
}
