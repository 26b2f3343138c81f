// Package sedir is an embeddable X.500/LDAP directory core: a
// schema-aware entry store behind an interceptor pipeline, with
// indexed search, collective attributes, and a change feed.
//
// A Directory is assembled from a configuration: one in-memory
// partition per configured suffix, the built-in schema plus any
// configured extensions, and the fixed interceptor chain. Operations
// are invoked against a Session obtained from Bind or AdminSession.
package sedir

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KilimcininKorOglu/sedir/internal/config"
	"github.com/KilimcininKorOglu/sedir/internal/dn"
	"github.com/KilimcininKorOglu/sedir/internal/event"
	"github.com/KilimcininKorOglu/sedir/internal/ldap"
	"github.com/KilimcininKorOglu/sedir/internal/logging"
	"github.com/KilimcininKorOglu/sedir/internal/nexus"
	"github.com/KilimcininKorOglu/sedir/internal/partition"
	"github.com/KilimcininKorOglu/sedir/internal/pipeline"
	"github.com/KilimcininKorOglu/sedir/internal/schema"
)

// Config is the directory configuration.
type Config = config.Config

// DefaultConfig returns the standard configuration rooted at ou=system.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Directory is an embedded directory instance.
type Directory struct {
	cfg     *Config
	schemas *schema.Manager
	nexus   *nexus.Nexus
	broker  *event.Broker
	chain   pipeline.Chain
	logger  *zap.Logger
	adminDn dn.Dn
}

// New assembles a directory from the configuration and bootstraps the
// system entries.
func New(cfg *Config) (*Directory, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, err
	}

	schemas, err := buildSchemas(cfg)
	if err != nil {
		return nil, err
	}

	nx := nexus.New(schemas, logger,
		ldap.ControlSubentries,
		ldap.ControlManageDsaIT,
		ldap.ControlPersistentSearch,
		ldap.ControlPasswordPolicy,
		ldap.ControlPagedResults,
	)

	reg := schemas.Current()
	// Partitions are independent; build them concurrently.
	parts := make([]*partition.Memory, len(cfg.Partitions))
	var g errgroup.Group
	for i, pc := range cfg.Partitions {
		g.Go(func() error {
			suffix, err := dn.Parse(pc.Suffix)
			if err != nil {
				return fmt.Errorf("partition suffix %q: %w", pc.Suffix, err)
			}
			nSuffix, err := suffix.Normalize(reg)
			if err != nil {
				return fmt.Errorf("partition suffix %q: %w", pc.Suffix, err)
			}
			parts[i] = partition.NewMemory(nSuffix, reg, logger, pc.Indexes...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, p := range parts {
		if err := nx.AddPartition(p); err != nil {
			return nil, err
		}
	}

	adminDn, err := dn.Parse(cfg.Directory.AdminDn)
	if err != nil {
		return nil, fmt.Errorf("adminDn: %w", err)
	}
	nAdminDn, err := adminDn.Normalize(reg)
	if err != nil {
		return nil, fmt.Errorf("adminDn: %w", err)
	}

	pcfg := pipeline.DefaultConfig()
	pcfg.AdminDn = cfg.Directory.AdminDn
	pcfg.DenormalizeOpAttrs = cfg.Directory.DenormalizeOpAttrs
	pcfg.AccessControlEnabled = cfg.Directory.AccessControlEnabled

	broker := event.NewBroker()
	chain, err := pipeline.New(&pipeline.Deps{
		Schemas: schemas,
		Nexus:   nx,
		Broker:  broker,
		Logger:  logger,
		Config:  pcfg,
	})
	if err != nil {
		return nil, err
	}

	d := &Directory{
		cfg:     cfg,
		schemas: schemas,
		nexus:   nx,
		broker:  broker,
		chain:   chain,
		logger:  logger,
		adminDn: nAdminDn,
	}
	if err := d.bootstrap(); err != nil {
		return nil, err
	}
	return d, nil
}

func buildSchemas(cfg *Config) (*schema.Manager, error) {
	base := schema.Default()
	m, err := schema.NewManager(base)
	if err != nil {
		return nil, err
	}
	if len(cfg.Schema.AttributeTypes) == 0 && len(cfg.Schema.ObjectClasses) == 0 {
		return m, nil
	}
	err = m.Rebuild(func(r *schema.Registries) error {
		for _, def := range cfg.Schema.AttributeTypes {
			at, err := schema.ParseAttributeType(def)
			if err != nil {
				return fmt.Errorf("schema attributeType %q: %w", def, err)
			}
			if err := r.AddAttributeType(at); err != nil {
				return err
			}
		}
		for _, def := range cfg.Schema.ObjectClasses {
			oc, err := schema.ParseObjectClass(def)
			if err != nil {
				return fmt.Errorf("schema objectClass %q: %w", def, err)
			}
			if err := r.AddObjectClass(oc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// bootstrap seeds the suffix entry of every partition and the
// well-known system entries.
func (d *Directory) bootstrap() error {
	admin := d.AdminSession()

	for _, p := range d.nexus.Partitions() {
		suffix := p.Suffix()
		if d.nexus.HasEntry(suffix) {
			continue
		}
		attrs := suffixAttrs(suffix)
		if err := d.Add(admin, suffix.User(), attrs); err != nil {
			return fmt.Errorf("bootstrapping %s: %w", suffix.User(), err)
		}
	}

	system, err := dn.MustParse("ou=system").Normalize(d.schemas.Current())
	if err != nil || !d.nexus.HasEntry(system) {
		return nil
	}

	seed := []struct {
		dn    string
		attrs map[string][]string
	}{
		{d.cfg.Directory.AdminDn, map[string][]string{
			"objectClass":  {"top", "person", "organizationalPerson", "inetOrgPerson"},
			"uid":          {"admin"},
			"cn":           {"system administrator"},
			"sn":           {"administrator"},
			"displayName":  {"Directory Superuser"},
			"userPassword": {d.cfg.Directory.AdminPassword},
		}},
		{"ou=users,ou=system", ouAttrs("users")},
		{"ou=groups,ou=system", ouAttrs("groups")},
		{"cn=administrators,ou=groups,ou=system", map[string][]string{
			"objectClass": {"top", "groupOfUniqueNames"},
			"cn":          {"administrators"},
			"uniqueMember": {
				d.cfg.Directory.AdminDn,
			},
		}},
		{"ou=configuration,ou=system", ouAttrs("configuration")},
		{"ou=services,ou=configuration,ou=system", ouAttrs("services")},
		{"ou=interceptors,ou=configuration,ou=system", ouAttrs("interceptors")},
		{"ou=partitions,ou=configuration,ou=system", ouAttrs("partitions")},
	}
	for _, s := range seed {
		nd, err := dn.Parse(s.dn)
		if err != nil {
			return err
		}
		nnd, err := nd.Normalize(d.schemas.Current())
		if err != nil {
			return err
		}
		if d.nexus.HasEntry(nnd) {
			continue
		}
		if err := d.Add(admin, s.dn, s.attrs); err != nil {
			return fmt.Errorf("bootstrapping %s: %w", s.dn, err)
		}
	}
	return nil
}

func ouAttrs(name string) map[string][]string {
	return map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {name},
	}
}

// suffixAttrs derives a plausible entry for a partition suffix from its
// RDN type.
func suffixAttrs(suffix dn.Dn) map[string][]string {
	rdn := suffix.Rdn()
	value := rdn.Value()
	switch rdn.Type() {
	case "2.5.4.11", "ou":
		return map[string][]string{
			"objectClass": {"top", "organizationalUnit"},
			"ou":          {value},
		}
	case "0.9.2342.19200300.100.1.25", "dc":
		return map[string][]string{
			"objectClass": {"top", "domain"},
			"dc":          {value},
		}
	case "2.5.4.10", "o":
		return map[string][]string{
			"objectClass": {"top", "organization"},
			"o":           {value},
		}
	default:
		return map[string][]string{
			"objectClass":       {"top", "extensibleObject"},
			rdn.Avas[0].UserType: {value},
		}
	}
}

// Logger exposes the directory's logger.
func (d *Directory) Logger() *zap.Logger {
	return d.logger
}

// Close releases the directory's resources.
func (d *Directory) Close() error {
	d.broker.Close()
	_ = d.logger.Sync()
	return nil
}
