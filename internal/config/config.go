// Package config parses the sectioned key-value configuration file into
// the guards, brokers and reporter specs the rest of mqguard wires
// together at startup. Grounded in the teacher's config-loading shape
// (cmd/gateway/main.go's loadConfig) but adapted to the INI format the
// specification mandates, via gopkg.in/ini.v1.
package config

import (
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"mqguard/internal/alarm"
	"mqguard/internal/guard"
	"mqguard/internal/ident"
)

// ReporterSpec is the raw, un-constructed description of one [Reporters]
// sub-section. cmd/mqguard turns these into concrete reporting.Reporter /
// streaming.Reporter instances, since that wiring needs the registry and
// logger this package doesn't own.
type ReporterSpec struct {
	Name          string
	Type          string // socket, websocket, log, print, metrics
	ListenAddress string
	ListenPort    int
	LogFile       string
}

// DeviceSpec pairs a configured device name with its immutable guard.
type DeviceSpec struct {
	Name  string
	Guard *guard.DeviceGuard
}

// Config is the fully parsed, validated result of loading a configuration
// file: every broker descriptor, every device's guard tree, and every
// reporter's raw spec.
type Config struct {
	Brokers   []ident.Broker
	Devices   []DeviceSpec
	Reporters []ReporterSpec
}

// Load reads and validates the configuration file at path, returning a
// *Error (never a bare error) on any configuration problem.
func Load(path string) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, newError("cannot read configuration file %q: %v", path, err)
	}

	brokers, brokersByName, err := loadBrokers(f)
	if err != nil {
		return nil, err
	}

	devices, err := loadDevices(f, brokersByName)
	if err != nil {
		return nil, err
	}

	reporters, err := loadReporters(f)
	if err != nil {
		return nil, err
	}

	return &Config{Brokers: brokers, Devices: devices, Reporters: reporters}, nil
}

// getSection fetches a named section, reporting a *Error (not ini's own
// "section does not exist") when it is missing — every caller in this
// package surfaces that as a configuration error.
func getSection(f *ini.File, name string) (*ini.Section, error) {
	sec, err := f.GetSection(name)
	if err != nil {
		return nil, newError("%s section is missing", name)
	}
	return sec, nil
}

func enabledNames(f *ini.File, sectionName string) ([]string, error) {
	section, err := getSection(f, sectionName)
	if err != nil {
		return nil, err
	}
	if !section.HasKey("Enabled") {
		return nil, newError("%s section has no Enabled key", sectionName)
	}
	names := strings.Fields(section.Key("Enabled").String())
	return names, nil
}

func loadBrokers(f *ini.File) ([]ident.Broker, map[string]ident.Broker, error) {
	names, err := enabledNames(f, "Brokers")
	if err != nil {
		return nil, nil, err
	}

	brokers := make([]ident.Broker, 0, len(names))
	byName := make(map[string]ident.Broker, len(names))
	for _, name := range names {
		sec, err := getSection(f, name)
		if err != nil {
			return nil, nil, newError("broker %q has no [%s] section", name, name)
		}

		port := 1883
		if sec.HasKey("Port") {
			p, err := sec.Key("Port").Int()
			if err != nil {
				return nil, nil, newError("broker %q: Port is not a number: %v", name, err)
			}
			port = p
		}
		host := sec.Key("Host").MustString("127.0.0.1")
		transport := sec.Key("Transport").MustString("mqtt")
		topics := strings.Fields(sec.Key("Topic").String())
		if len(topics) == 0 {
			return nil, nil, newError("broker %q subscribes to zero topics", name)
		}

		b := ident.Broker{
			Name:      name,
			Host:      host,
			Port:      port,
			Transport: transport,
			User:      sec.Key("User").String(),
			Password:  sec.Key("Password").String(),
			Topics:    topics,
		}
		brokers = append(brokers, b)
		byName[name] = b
	}
	return brokers, byName, nil
}

func loadDevices(f *ini.File, brokers map[string]ident.Broker) ([]DeviceSpec, error) {
	names, err := enabledNames(f, "Devices")
	if err != nil {
		return nil, err
	}

	devices := make([]DeviceSpec, 0, len(names))
	for _, name := range names {
		sec, err := getSection(f, name)
		if err != nil {
			return nil, newError("device %q has no [%s] section", name, name)
		}

		guardSectionName := sec.Key("Guard").String()
		if guardSectionName == "" {
			return nil, newError("device %q has no Guard key", name)
		}

		presence, err := loadPresence(sec, name, brokers)
		if err != nil {
			return nil, err
		}

		dg := guard.NewDeviceGuard(name, presence)
		updateGuards, err := loadGuardSection(f, guardSectionName, brokers)
		if err != nil {
			return nil, err
		}
		for _, ug := range updateGuards {
			dg.AddUpdateGuard(ug)
		}

		devices = append(devices, DeviceSpec{Name: name, Guard: dg})
	}
	return devices, nil
}

func loadPresence(sec *ini.Section, deviceName string, brokers map[string]ident.Broker) (guard.DevicePresence, error) {
	topicSpec := sec.Key("PresenceTopic").String()
	if topicSpec == "" {
		return guard.NoPresence(), nil
	}
	id, err := parseIdentifier(topicSpec, brokers)
	if err != nil {
		return guard.DevicePresence{}, newError("device %q: PresenceTopic: %v", deviceName, err)
	}
	online := sec.Key("PresenceOnline").String()
	offline := sec.Key("PresenceOffline").String()
	if online == "" || offline == "" {
		return guard.DevicePresence{}, newError("device %q: PresenceTopic requires both PresenceOnline and PresenceOffline", deviceName)
	}
	return guard.NewDevicePresence(id, online, offline), nil
}

// parseIdentifier splits a "<brokerName> <topic>" spec and resolves it
// against the already-loaded broker set.
func parseIdentifier(spec string, brokers map[string]ident.Broker) (ident.DataIdentifier, error) {
	fields := strings.SplitN(strings.TrimSpace(spec), " ", 2)
	if len(fields) != 2 || fields[1] == "" {
		return ident.DataIdentifier{}, newError("expected '<brokerName> <topic>', got %q", spec)
	}
	brokerName, topic := fields[0], strings.TrimSpace(fields[1])
	if _, ok := brokers[brokerName]; !ok {
		return ident.DataIdentifier{}, newError("unknown broker %q", brokerName)
	}
	return ident.DataIdentifier{Broker: brokerName, Topic: topic}, nil
}

// loadGuardSection reads a [Guard] section whose every key is a
// "<brokerName> <topic>" spec and whose value names an update-guard
// section to build against that identifier.
func loadGuardSection(f *ini.File, sectionName string, brokers map[string]ident.Broker) ([]*guard.UpdateGuard, error) {
	sec, err := getSection(f, sectionName)
	if err != nil {
		return nil, newError("guard section %q is missing", sectionName)
	}

	guards := make([]*guard.UpdateGuard, 0, len(sec.Keys()))
	for _, key := range sec.Keys() {
		id, err := parseIdentifier(key.Name(), brokers)
		if err != nil {
			return nil, newError("guard section %q: %v", sectionName, err)
		}
		updateGuardName := key.String()
		ug, err := loadUpdateGuard(f, updateGuardName, id)
		if err != nil {
			return nil, err
		}
		guards = append(guards, ug)
	}
	return guards, nil
}

// loadUpdateGuard reads an update-guard section's optional keys and
// instantiates the alarms they declare. At least one recognized key must
// be present.
func loadUpdateGuard(f *ini.File, sectionName string, id ident.DataIdentifier) (*guard.UpdateGuard, error) {
	sec, err := getSection(f, sectionName)
	if err != nil {
		return nil, newError("update guard %q is missing", sectionName)
	}
	ug := guard.NewUpdateGuard(sectionName, id)

	alarmCount := 0

	if sec.HasKey("Type") {
		switch t := sec.Key("Type").String(); t {
		case "numeric":
			ug.AddAlarm(alarm.NewNumericAlarm(sectionName + ".type"))
		case "alphanumeric":
			ug.AddAlarm(alarm.NewAlphanumericAlarm(sectionName + ".type"))
		case "alphabetic":
			ug.AddAlarm(alarm.NewAlphabeticAlarm(sectionName + ".type"))
		default:
			return nil, newError("update guard %q: unknown Type %q", sectionName, t)
		}
		alarmCount++
	}

	if sec.HasKey("ValidRangeMin") || sec.HasKey("ValidRangeMax") {
		lower, err := rangeBound(sec, "ValidRangeMin", sectionName, -1)
		if err != nil {
			return nil, err
		}
		upper, err := rangeBound(sec, "ValidRangeMax", sectionName, 1)
		if err != nil {
			return nil, err
		}
		ug.AddAlarm(alarm.NewRangeAlarm(sectionName+".range", lower, upper))
		alarmCount++
	}

	if sec.HasKey("PeriodMin") {
		period, err := parseSeconds(sec, "PeriodMin", sectionName)
		if err != nil {
			return nil, err
		}
		ug.AddAlarm(alarm.NewFloodingAlarm(sectionName+".flooding", period))
		alarmCount++
	}

	if sec.HasKey("PeriodMax") {
		period, err := parseSeconds(sec, "PeriodMax", sectionName)
		if err != nil {
			return nil, err
		}
		ug.AddAlarm(alarm.NewTimeoutAlarm(sectionName+".timeout", period))
		alarmCount++
	}

	if sec.HasKey("ErrorCodes") {
		codes := strings.Fields(sec.Key("ErrorCodes").String())
		ug.AddAlarm(alarm.NewErrorCodesAlarm(sectionName+".errorcodes", codes))
		alarmCount++
	}

	if alarmCount == 0 {
		return nil, newError("update guard %q declares no alarms", sectionName)
	}
	return ug, nil
}

func rangeBound(sec *ini.Section, key, sectionName string, sign int) (float64, error) {
	if !sec.HasKey(key) {
		return math.Inf(sign), nil
	}
	v, err := strconv.ParseFloat(sec.Key(key).String(), 64)
	if err != nil {
		return 0, newError("update guard %q: %s is not a number: %v", sectionName, key, err)
	}
	return v, nil
}

func parseSeconds(sec *ini.Section, key, sectionName string) (time.Duration, error) {
	v, err := strconv.ParseFloat(sec.Key(key).String(), 64)
	if err != nil {
		return 0, newError("update guard %q: %s is not a number: %v", sectionName, key, err)
	}
	return time.Duration(v * float64(time.Second)), nil
}

func loadReporters(f *ini.File) ([]ReporterSpec, error) {
	names, err := enabledNames(f, "Reporters")
	if err != nil {
		return nil, err
	}

	reporters := make([]ReporterSpec, 0, len(names))
	for _, name := range names {
		sec, err := getSection(f, name)
		if err != nil {
			return nil, newError("reporter %q has no [%s] section", name, name)
		}

		rtype := sec.Key("Type").String()
		switch rtype {
		case "socket", "websocket", "log", "print", "metrics":
		default:
			return nil, newError("reporter %q: unknown Type %q", name, rtype)
		}

		port := 0
		if sec.HasKey("ListenPort") {
			p, err := sec.Key("ListenPort").Int()
			if err != nil {
				return nil, newError("reporter %q: ListenPort is not a number: %v", name, err)
			}
			port = p
		}

		reporters = append(reporters, ReporterSpec{
			Name:          name,
			Type:          rtype,
			ListenAddress: sec.Key("ListenAddress").MustString("0.0.0.0"),
			ListenPort:    port,
			LogFile:       sec.Key("LogFile").String(),
		})
	}
	return reporters, nil
}
