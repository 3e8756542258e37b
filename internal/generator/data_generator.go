package generator

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
)

var drgDescriptions = map[string]string{
	"177": "RESPIRATORY INFECTIONS AND INFLAMMATIONS WITH MCC",
	"189": "PULMONARY EDEMA AND RESPIRATORY FAILURE",
	"190": "CHRONIC OBSTRUCTIVE PULMONARY DISEASE WITH MCC",
	"193": "SIMPLE PNEUMONIA AND PLEURISY WITH MCC",
	"194": "SIMPLE PNEUMONIA AND PLEURISY WITH CC",
	"291": "HEART FAILURE AND SHOCK WITH MCC",
	"292": "HEART FAILURE AND SHOCK WITH CC",
	"392": "ESOPHAGITIS, GASTROENTERITIS AND MISCELLANEOUS DIGESTIVE DISORDERS WITHOUT MCC",
	"470": "MAJOR HIP AND KNEE JOINT REPLACEMENT OR REATTACHMENT OF LOWER EXTREMITY WITHOUT MCC",
	"603": "CELLULITIS WITHOUT MCC",
	"683": "RENAL FAILURE WITH CC",
	"871": "SEPTICEMIA OR SEVERE SEPSIS WITHOUT MV >96 HOURS WITH MCC",
	"872": "SEPTICEMIA OR SEVERE SEPSIS WITHOUT MV >96 HOURS WITHOUT MCC",
}

var facilitySuffixes = []string{"HOSPITAL", "MEDICAL CENTER", "REGIONAL MEDICAL CENTER", "MEMORIAL HOSPITAL", "COMMUNITY HOSPITAL"}

// Reporting period of the readmissions program
const (
	PeriodStart = "07/01/2019"
	PeriodEnd   = "06/30/2022"
)

// DataGenerator generates fake CMS values based on column names and types
type DataGenerator struct {
	Faker         faker.Faker
	Rand          *rand.Rand
	CurrentRecord map[string]string
	Logger        *logrus.Logger
}

// NewDataGenerator creates a new data generator. A zero seed uses the current time.
func NewDataGenerator(seed int64, logger *logrus.Logger) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		Faker:         faker.NewWithSeed(rand.NewSource(seed)),
		Rand:          rand.New(rand.NewSource(seed)),
		CurrentRecord: make(map[string]string),
		Logger:        logger,
	}
}

// FacilityID returns a six digit CMS certification number
func (dg *DataGenerator) FacilityID() string {
	return fmt.Sprintf("%06d", dg.Faker.IntBetween(10001, 670099))
}

// OrphanFacilityID returns a certification number outside the range FacilityID produces
func (dg *DataGenerator) OrphanFacilityID() string {
	return fmt.Sprintf("%06d", dg.Faker.IntBetween(900000, 999999))
}

// GenerateRecord generates one row. Columns are filled in order so later
// columns can depend on earlier ones.
func (dg *DataGenerator) GenerateRecord(columns []Column) map[string]string {
	dg.CurrentRecord = make(map[string]string, len(columns))
	for _, column := range columns {
		dg.CurrentRecord[column.Name] = dg.GenerateData(column)
	}
	return dg.CurrentRecord
}

// GenerateData generates a CSV cell for a column based on its name and type.
// An empty string is a missing value.
func (dg *DataGenerator) GenerateData(column Column) string {
	if column.NullRate > 0 && dg.Rand.Float64() < column.NullRate {
		return ""
	}

	columnName := strings.ToLower(column.Name)

	// Handle special column names
	switch {
	case strings.HasSuffix(columnName, "facility_id") || strings.HasSuffix(columnName, "_ccn"):
		return dg.FacilityID()
	case strings.Contains(columnName, "org_name") || strings.Contains(columnName, "facility_name"):
		return strings.ToUpper(dg.Faker.Company().Name()) + " " + facilitySuffixes[dg.Rand.Intn(len(facilitySuffixes))]
	case strings.Contains(columnName, "address"):
		return strings.ToUpper(dg.Faker.Address().StreetAddress())
	case strings.Contains(columnName, "city"):
		return strings.ToUpper(dg.Faker.Address().City())
	case strings.Contains(columnName, "state"):
		return dg.Faker.Address().StateAbbr()
	case strings.Contains(columnName, "zip"):
		return fmt.Sprintf("%05d", dg.Faker.IntBetween(1001, 99950))
	case strings.Contains(columnName, "county"):
		return strings.ToUpper(dg.Faker.Person().LastName())
	case strings.Contains(columnName, "phone"):
		return dg.Faker.Numerify("(###) ###-####")
	case columnName == "drg_desc":
		if desc, ok := drgDescriptions[dg.CurrentRecord["drg_cd"]]; ok {
			return desc
		}
		return strings.ToUpper(dg.Faker.Lorem().Sentence(6))
	case columnName == "start_date":
		return PeriodStart
	case columnName == "end_date":
		return PeriodEnd
	}

	// Generate data based on data type
	switch column.DataType {
	case TypeInt:
		return strconv.Itoa(dg.generateInteger(column))
	case TypeFloat:
		return strconv.FormatFloat(dg.generateFloat(column), 'f', 2, 64)
	case TypeEnum:
		return dg.generateEnum(column)
	case TypeBool:
		if dg.Rand.Intn(2) == 1 {
			return "Yes"
		}
		return "No"
	case TypeDate:
		return dg.generateDate().Format("01/02/2006")
	case TypeString:
		return dg.Faker.Lorem().Word()
	default:
		dg.Logger.Warningf("No specific generator for type %s, using default string", column.DataType)
		return dg.Faker.Lorem().Word()
	}
}

func (dg *DataGenerator) generateInteger(column Column) int {
	min, max := column.Min, column.Max
	if max <= min {
		max = min + 1000
	}
	return dg.Faker.IntBetween(min, max)
}

func (dg *DataGenerator) generateFloat(column Column) float64 {
	min, max := float64(column.Min), float64(column.Max)
	if max <= min {
		max = min + 1000
	}
	return min + dg.Rand.Float64()*(max-min)
}

func (dg *DataGenerator) generateEnum(column Column) string {
	if len(column.Values) == 0 {
		dg.Logger.Warningf("No values defined for enum column %s", column.Name)
		return ""
	}
	return column.Values[dg.Rand.Intn(len(column.Values))]
}

func (dg *DataGenerator) generateDate() time.Time {
	days := dg.Rand.Intn(3 * 365)
	return time.Date(2022, 6, 30, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}
