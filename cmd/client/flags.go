package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/selective"
)

// bindFlag связывает флаг с ключом viper. Незаданный флаг не перекрывает env и файл.
func bindFlag(v *viper.Viper, flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

func notifyContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func addMetadataFlags(fs *pflag.FlagSet) {
	fs.String("project", "", "project of the entity")
	fs.String("modality", "", "instrument or method modality")
	fs.String("date", "", "reference date, YYYY-MM-DD")
	fs.Int64("attachment-size", 0, "attachment size in bytes")
}

// metadataFromFlags возвращает nil, если ни один флаг метаданных не задан
func metadataFromFlags(fs *pflag.FlagSet) (*models.EntityMetadata, error) {
	if !fs.Changed("project") && !fs.Changed("modality") && !fs.Changed("date") && !fs.Changed("attachment-size") {
		return nil, nil
	}
	var md models.EntityMetadata
	md.Project, _ = fs.GetString("project")
	md.Modality, _ = fs.GetString("modality")
	md.AttachmentSize, _ = fs.GetInt64("attachment-size")
	if md.AttachmentSize < 0 {
		return nil, fmt.Errorf("--attachment-size must not be negative")
	}
	if fs.Changed("date") {
		raw, _ := fs.GetString("date")
		d, err := parseDate("date", raw)
		if err != nil {
			return nil, err
		}
		md.ReferenceDate = &d
	}
	return &md, nil
}

func addSelectiveFlags(fs *pflag.FlagSet) {
	fs.Bool("enable", false, "turn selective sync on")
	fs.Bool("disable", false, "turn selective sync off, sync everything")
	fs.StringSlice("projects", nil, "projects to sync (empty value clears)")
	fs.StringSlice("entity-types", nil, "entity types to sync (empty value clears)")
	fs.StringSlice("modalities", nil, "modalities to sync (empty value clears)")
	fs.String("from", "", "sync entities dated on or after, YYYY-MM-DD")
	fs.String("to", "", "sync entities dated on or before, YYYY-MM-DD")
	fs.Bool("any-date", false, "drop the date range")
	fs.Int64("max-attachment-size", 0, "skip attachments larger than this many bytes, 0 means no limit")
}

// patchFromFlags переводит заданные флаги в частичное обновление конфигурации.
// Без флагов патч пустой и команда только показывает текущую конфигурацию.
func patchFromFlags(fs *pflag.FlagSet) (selective.Patch, error) {
	var p selective.Patch

	enable, _ := fs.GetBool("enable")
	disable, _ := fs.GetBool("disable")
	switch {
	case enable && disable:
		return p, fmt.Errorf("--enable and --disable are mutually exclusive")
	case enable:
		p.Enabled = &enable
	case disable:
		off := false
		p.Enabled = &off
	}

	for flag, dst := range map[string]**[]string{
		"projects":     &p.Projects,
		"entity-types": &p.EntityTypes,
		"modalities":   &p.Modalities,
	} {
		if !fs.Changed(flag) {
			continue
		}
		values, _ := fs.GetStringSlice(flag)
		items := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				items = append(items, v)
			}
		}
		*dst = &items
	}

	anyDate, _ := fs.GetBool("any-date")
	if anyDate && (fs.Changed("from") || fs.Changed("to")) {
		return p, fmt.Errorf("--any-date cannot be combined with --from or --to")
	}
	p.ClearDateRange = anyDate
	if fs.Changed("from") || fs.Changed("to") {
		var dr models.DateRange
		for flag, dst := range map[string]*time.Time{"from": &dr.From, "to": &dr.To} {
			raw, _ := fs.GetString(flag)
			if raw == "" {
				continue
			}
			d, err := parseDate(flag, raw)
			if err != nil {
				return p, err
			}
			*dst = d
		}
		p.DateRange = &dr
	}

	if fs.Changed("max-attachment-size") {
		size, _ := fs.GetInt64("max-attachment-size")
		if size < 0 {
			return p, fmt.Errorf("--max-attachment-size must not be negative")
		}
		p.MaxAttachmentSize = &size
	}
	return p, nil
}

func parseDate(flag, raw string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, raw)
	}
	return d, nil
}
