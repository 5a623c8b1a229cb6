package site

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/harvest-cli/internal/enrich"
)

// Staff counts are labelled "의사 : 12". The general-physician pattern must
// not match inside "치과의사" or "한의사".
var (
	doctorRe  = regexp.MustCompile(`(?:^|[^과한])의사\s*:\s*(\d+)`)
	dentistRe = regexp.MustCompile(`치과의사\s*:\s*(\d+)`)
	kmdRe     = regexp.MustCompile(`한의사\s*:\s*(\d+)`)
)

// DoctorCounts extracts the physician, dentist and Korean-medicine doctor
// counts from a staff summary. Missing counts are "".
func DoctorCounts(info string) (doctors, dentists, kmd string) {
	find := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(info); len(m) > 1 {
			return m[1]
		}
		return ""
	}
	return find(doctorRe), find(dentistRe), find(kmdRe)
}

// ParseHospitalDetail extracts the staff summary and specialty list from a
// detail fragment. A fragment with neither is treated as a failed lookup.
func ParseHospitalDetail(doc enrich.RawDocument) (map[string]string, error) {
	root, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, eris.Wrap(err, "detail: parse html")
	}

	info := ""
	root.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		text := strings.TrimSpace(td.Text())
		if strings.Contains(text, "총 인원") {
			info = text
			return false
		}
		return true
	})

	var specialties []string
	lists := root.Find("ul.pop_list_style")
	if lists.Length() > 0 {
		lists.First().Find("li").Each(func(_ int, li *goquery.Selection) {
			specialties = append(specialties, li.Text())
		})
	}

	if info == "" && lists.Length() == 0 {
		return nil, eris.New("detail: no staff summary or specialty list")
	}
	if info == "" {
		info = "N/A"
	}

	doctors, dentists, kmd := DoctorCounts(info)
	return map[string]string{
		"doctor_info":             info,
		"specialties":             enrich.Flatten(specialties),
		"doctors":                 doctors,
		"dentists":                dentists,
		"korean_medicine_doctors": kmd,
	}, nil
}
