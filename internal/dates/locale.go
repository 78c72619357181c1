package dates

import (
	"strings"
	"time"
)

type Unit int

const (
	Seconds Unit = iota
	Minutes
	Hours
	Days
	Weeks
	Months
	Years
)

func (u Unit) String() string {
	switch u {
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	case Weeks:
		return "weeks"
	case Months:
		return "months"
	case Years:
		return "years"
	default:
		return "unknown"
	}
}

// UnitWords maps keywords to a unit. Matching is contains-based on folded text, so
// words are stems ("minut" covers "minuto" and "minutos").
type UnitWords struct {
	Unit  Unit
	Words []string
}

// Locale carries everything needed to read dates written in one language.
// Units are tried in order, so a stem that is a substring of another unit's word
// must come after it.
type Locale struct {
	Name string
	// Layouts are Go reference layouts. Literal words must be lower case: input is
	// lower-cased and month names are translated to English before parsing.
	Layouts   []string
	Units     []UnitWords
	Now       []string
	Today     []string
	Yesterday []string
	// One lists articles that stand for a magnitude of one ("an hour ago").
	One []string
	// Months holds the accepted spellings per month, January first.
	Months   [12][]string
	Location *time.Location
}

var englishMonths = [12]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var commonLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
}

var locales = map[string]Locale{
	"en": {
		Name: "en",
		Layouts: []string{
			"January 2, 2006",
			"January 2 2006",
			"Jan 2, 2006",
			"2 January 2006",
			"2 Jan 2006",
			"January 2, 2006 3:04 pm",
			"Jan 2, 06",
			"01/02/2006",
			"01/02/06",
		},
		Units: []UnitWords{
			{Seconds, []string{"second", "sec"}},
			{Minutes, []string{"minute", "min"}},
			{Hours, []string{"hour", "hr"}},
			{Days, []string{"day"}},
			{Weeks, []string{"week", "wk"}},
			{Months, []string{"month"}},
			{Years, []string{"year", "yr"}},
		},
		Now:       []string{"just now", "now"},
		Today:     []string{"today"},
		Yesterday: []string{"yesterday"},
		One:       []string{"a", "an", "one"},
		Months: [12][]string{
			{"january", "jan"}, {"february", "feb"}, {"march", "mar"}, {"april", "apr"},
			{"may"}, {"june", "jun"}, {"july", "jul"}, {"august", "aug"},
			{"september", "sept", "sep"}, {"october", "oct"}, {"november", "nov"}, {"december", "dec"},
		},
	},
	"es": {
		Name:    "es",
		Layouts: []string{"2 de January de 2006", "2 January, 2006", "January 2, 2006", "02/01/2006", "2/1/2006"},
		Units: []UnitWords{
			{Seconds, []string{"segundo"}},
			{Minutes, []string{"minuto", "min"}},
			{Hours, []string{"hora"}},
			{Days, []string{"día", "dia"}},
			{Weeks, []string{"semana"}},
			{Months, []string{"mes"}},
			{Years, []string{"año", "ano"}},
		},
		Now:       []string{"ahora", "justo ahora"},
		Today:     []string{"hoy"},
		Yesterday: []string{"ayer"},
		One:       []string{"un", "una"},
		Months: [12][]string{
			{"enero", "ene"}, {"febrero", "feb"}, {"marzo", "mar"}, {"abril", "abr"},
			{"mayo", "may"}, {"junio", "jun"}, {"julio", "jul"}, {"agosto", "ago"},
			{"septiembre", "setiembre", "sep", "set"}, {"octubre", "oct"}, {"noviembre", "nov"}, {"diciembre", "dic"},
		},
	},
	"pt": {
		Name:    "pt",
		Layouts: []string{"2 de January de 2006", "January 2, 2006", "02/01/2006", "2/1/2006"},
		Units: []UnitWords{
			{Seconds, []string{"segundo"}},
			{Minutes, []string{"minuto", "min"}},
			{Hours, []string{"hora"}},
			{Days, []string{"dia"}},
			{Weeks, []string{"semana"}},
			{Months, []string{"mês", "mes"}},
			{Years, []string{"ano"}},
		},
		Now:       []string{"agora"},
		Today:     []string{"hoje"},
		Yesterday: []string{"ontem"},
		One:       []string{"um", "uma"},
		Months: [12][]string{
			{"janeiro", "jan"}, {"fevereiro", "fev"}, {"março", "marco", "mar"}, {"abril", "abr"},
			{"maio", "mai"}, {"junho", "jun"}, {"julho", "jul"}, {"agosto", "ago"},
			{"setembro", "set"}, {"outubro", "out"}, {"novembro", "nov"}, {"dezembro", "dez"},
		},
	},
	"fr": {
		Name:    "fr",
		Layouts: []string{"2 January 2006", "January 2, 2006", "02/01/2006"},
		Units: []UnitWords{
			{Seconds, []string{"seconde"}},
			{Minutes, []string{"minute", "min"}},
			{Hours, []string{"heure"}},
			{Days, []string{"jour"}},
			{Weeks, []string{"semaine"}},
			{Months, []string{"mois"}},
			{Years, []string{"an"}},
		},
		Now:       []string{"à l'instant", "maintenant"},
		Today:     []string{"aujourd'hui"},
		Yesterday: []string{"hier"},
		One:       []string{"un", "une"},
		Months: [12][]string{
			{"janvier", "janv"}, {"février", "fevrier", "févr", "fevr"}, {"mars"}, {"avril", "avr"},
			{"mai"}, {"juin"}, {"juillet", "juil"}, {"août", "aout"},
			{"septembre", "sept"}, {"octobre", "oct"}, {"novembre", "nov"}, {"décembre", "decembre", "déc", "dec"},
		},
	},
	"id": {
		Name:    "id",
		Layouts: []string{"2 January 2006", "January 2, 2006", "02/01/2006"},
		Units: []UnitWords{
			{Seconds, []string{"detik"}},
			{Minutes, []string{"menit"}},
			{Hours, []string{"jam"}},
			{Days, []string{"hari"}},
			{Weeks, []string{"minggu"}},
			{Months, []string{"bulan"}},
			{Years, []string{"tahun"}},
		},
		Now:       []string{"baru saja", "sekarang"},
		Today:     []string{"hari ini"},
		Yesterday: []string{"kemarin"},
		Months: [12][]string{
			{"januari", "jan"}, {"februari", "feb"}, {"maret", "mar"}, {"april", "apr"},
			{"mei"}, {"juni", "jun"}, {"juli", "jul"}, {"agustus", "agu", "agt"},
			{"september", "sep"}, {"oktober", "okt"}, {"november", "nov"}, {"desember", "des"},
		},
	},
	"tr": {
		Name:    "tr",
		Layouts: []string{"2 January 2006", "02.01.2006", "02/01/2006"},
		Units: []UnitWords{
			{Seconds, []string{"saniye"}},
			{Minutes, []string{"dakika"}},
			{Hours, []string{"saat"}},
			{Days, []string{"gün"}},
			{Weeks, []string{"hafta"}},
			{Months, []string{"ay"}},
			{Years, []string{"yıl"}},
		},
		Now:       []string{"şimdi", "az önce"},
		Today:     []string{"bugün"},
		Yesterday: []string{"dün"},
		One:       []string{"bir"},
		Months: [12][]string{
			{"ocak", "oca"}, {"şubat", "şub"}, {"mart", "mar"}, {"nisan", "nis"},
			{"mayıs", "may"}, {"haziran", "haz"}, {"temmuz", "tem"}, {"ağustos", "ağu"},
			{"eylül", "eyl"}, {"ekim", "eki"}, {"kasım", "kas"}, {"aralık", "ara"},
		},
	},
	"vi": {
		Name:    "vi",
		Layouts: []string{"02/01/2006", "2/1/2006", "02-01-2006"},
		Units: []UnitWords{
			{Seconds, []string{"giây"}},
			{Minutes, []string{"phút"}},
			{Hours, []string{"giờ"}},
			{Days, []string{"ngày"}},
			{Weeks, []string{"tuần"}},
			{Months, []string{"tháng"}},
			{Years, []string{"năm"}},
		},
		Now:       []string{"vừa xong"},
		Today:     []string{"hôm nay"},
		Yesterday: []string{"hôm qua"},
	},
	"it": {
		Name:    "it",
		Layouts: []string{"2 January 2006", "02/01/2006"},
		Units: []UnitWords{
			{Seconds, []string{"second"}},
			{Minutes, []string{"minut"}},
			{Hours, []string{"ore", "ora"}},
			{Days, []string{"giorn"}},
			{Weeks, []string{"settiman"}},
			{Months, []string{"mese", "mesi"}},
			{Years, []string{"anno", "anni"}},
		},
		Now:       []string{"adesso", "proprio ora"},
		Today:     []string{"oggi"},
		Yesterday: []string{"ieri"},
		One:       []string{"un", "una", "uno"},
		Months: [12][]string{
			{"gennaio", "gen"}, {"febbraio", "feb"}, {"marzo", "mar"}, {"aprile", "apr"},
			{"maggio", "mag"}, {"giugno", "giu"}, {"luglio", "lug"}, {"agosto", "ago"},
			{"settembre", "set"}, {"ottobre", "ott"}, {"novembre", "nov"}, {"dicembre", "dic"},
		},
	},
	"ru": {
		Name:    "ru",
		Layouts: []string{"02.01.2006", "2 January 2006"},
		Units: []UnitWords{
			{Seconds, []string{"секунд"}},
			{Minutes, []string{"минут"}},
			{Hours, []string{"час"}},
			{Days, []string{"дн", "день", "дня"}},
			{Weeks, []string{"недел"}},
			{Months, []string{"месяц"}},
			{Years, []string{"год", "лет"}},
		},
		Now:       []string{"только что"},
		Today:     []string{"сегодня"},
		Yesterday: []string{"вчера"},
		Months: [12][]string{
			{"января", "январь", "янв"}, {"февраля", "февраль", "фев"}, {"марта", "март", "мар"}, {"апреля", "апрель", "апр"},
			{"мая", "май"}, {"июня", "июнь", "июн"}, {"июля", "июль", "июл"}, {"августа", "август", "авг"},
			{"сентября", "сентябрь", "сен"}, {"октября", "октябрь", "окт"}, {"ноября", "ноябрь", "ноя"}, {"декабря", "декабрь", "дек"},
		},
	},
}

// LocaleFor returns the built-in locale for a language code ("pt-BR" reads as
// "pt"). Unknown codes fall back to English.
func LocaleFor(code string) Locale {
	code = strings.ToLower(strings.TrimSpace(code))
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	if locale, ok := locales[code]; ok {
		return locale
	}
	return locales["en"]
}

// LocaleNames lists the built-in locale codes.
func LocaleNames() []string {
	return []string{"en", "es", "fr", "id", "it", "pt", "ru", "tr", "vi"}
}

// WithLayouts returns a copy of l that tries layouts before its own.
func (l Locale) WithLayouts(layouts ...string) Locale {
	merged := make([]string, 0, len(layouts)+len(l.Layouts))
	for _, layout := range layouts {
		if trimmed := strings.TrimSpace(layout); trimmed != "" {
			merged = append(merged, trimmed)
		}
	}
	l.Layouts = append(merged, l.Layouts...)
	return l
}

func (l Locale) WithLocation(loc *time.Location) Locale {
	l.Location = loc
	return l
}
