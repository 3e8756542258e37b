package generator

// Column data types understood by GenerateData
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeDate   = "date"
	TypeEnum   = "enum"
	TypeBool   = "bool"
)

// Reference points a column at a column of another dataset
type Reference struct {
	Dataset string
	Column  string
}

// Column describes one CSV column of a sample dataset
type Column struct {
	Name     string
	DataType string
	Min      int
	Max      int
	Values   []string
	Unique   bool
	NullRate float64
	// References makes the column a foreign key into an earlier dataset
	References *Reference
}

// Dataset is one sample extract written by the seed command
type Dataset struct {
	Name      string
	LocalPath string
	// Scale multiplies the base record count
	Scale   int
	Columns []Column
}

// DependsOn lists the datasets this dataset references
func (d Dataset) DependsOn() []string {
	seen := map[string]bool{}
	var deps []string
	for _, c := range d.Columns {
		if c.References != nil && !seen[c.References.Dataset] {
			seen[c.References.Dataset] = true
			deps = append(deps, c.References.Dataset)
		}
	}
	return deps
}

var drgCodes = []string{"177", "189", "190", "193", "194", "291", "292", "392", "470", "603", "683", "871", "872"}

// CMSDatasets mirror the layout of the CMS downloads loaded into the bronze layer
var CMSDatasets = []Dataset{
	{
		Name:      "ipps_charges",
		LocalPath: "data/ipps_charges.csv",
		Scale:     20,
		Columns: []Column{
			{Name: "rndrng_prvdr_ccn", DataType: TypeString, References: &Reference{Dataset: "hospital_general_info", Column: "facility_id"}},
			{Name: "rndrng_prvdr_org_name", DataType: TypeString},
			{Name: "rndrng_prvdr_city", DataType: TypeString},
			{Name: "rndrng_prvdr_state_abrvtn", DataType: TypeString},
			{Name: "rndrng_prvdr_zip5", DataType: TypeString},
			{Name: "drg_cd", DataType: TypeEnum, Values: drgCodes},
			{Name: "drg_desc", DataType: TypeString},
			{Name: "tot_dschrgs", DataType: TypeInt, Min: 11, Max: 600},
			{Name: "avg_submtd_cvrd_chrg", DataType: TypeFloat, Min: 5000, Max: 450000, NullRate: 0.01},
			{Name: "avg_tot_pymt_amt", DataType: TypeFloat, Min: 3000, Max: 120000},
			{Name: "avg_mdcr_pymt_amt", DataType: TypeFloat, Min: 2000, Max: 100000},
		},
	},
	{
		Name:      "hospital_general_info",
		LocalPath: "data/hospital_general_info.csv",
		Scale:     1,
		Columns: []Column{
			{Name: "facility_id", DataType: TypeString, Unique: true},
			{Name: "facility_name", DataType: TypeString},
			{Name: "address", DataType: TypeString},
			{Name: "city", DataType: TypeString},
			{Name: "state", DataType: TypeString},
			{Name: "zip_code", DataType: TypeString},
			{Name: "county_name", DataType: TypeString},
			{Name: "phone_number", DataType: TypeString},
			{Name: "hospital_type", DataType: TypeEnum, Values: []string{"Acute Care Hospitals", "Critical Access Hospitals", "Childrens", "Psychiatric"}},
			{Name: "hospital_ownership", DataType: TypeEnum, Values: []string{"Voluntary non-profit - Private", "Proprietary", "Government - State", "Government - Local", "Physician"}},
			{Name: "emergency_services", DataType: TypeBool},
			{Name: "hospital_overall_rating", DataType: TypeEnum, Values: []string{"1", "2", "3", "4", "5", "Not Available"}},
		},
	},
	{
		Name:      "readmissions",
		LocalPath: "data/readmissions.csv",
		Scale:     6,
		Columns: []Column{
			{Name: "facility_name", DataType: TypeString},
			{Name: "facility_id", DataType: TypeString, References: &Reference{Dataset: "hospital_general_info", Column: "facility_id"}},
			{Name: "state", DataType: TypeString},
			{Name: "measure_name", DataType: TypeEnum, Values: []string{
				"READM-30-AMI-HRRP", "READM-30-CABG-HRRP", "READM-30-COPD-HRRP",
				"READM-30-HF-HRRP", "READM-30-HIP-KNEE-HRRP", "READM-30-PN-HRRP",
			}},
			{Name: "number_of_discharges", DataType: TypeInt, Min: 25, Max: 2500, NullRate: 0.05},
			{Name: "excess_readmission_ratio", DataType: TypeFloat, Min: 0, Max: 2, NullRate: 0.05},
			{Name: "predicted_readmission_rate", DataType: TypeFloat, Min: 2, Max: 30},
			{Name: "expected_readmission_rate", DataType: TypeFloat, Min: 2, Max: 30},
			{Name: "number_of_readmissions", DataType: TypeInt, Min: 0, Max: 400, NullRate: 0.05},
			{Name: "start_date", DataType: TypeDate},
			{Name: "end_date", DataType: TypeDate},
		},
	},
}
