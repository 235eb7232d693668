package memory

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/claims"
	"github.com/noah-isme/backend-klaim/internal/commission"
	"github.com/noah-isme/backend-klaim/internal/common"
	"github.com/noah-isme/backend-klaim/internal/ledger"
	"github.com/noah-isme/backend-klaim/internal/money"
	"github.com/noah-isme/backend-klaim/internal/pricing"
)

// Seed is the YAML fixture layout. Amounts and dates are strings so they are
// parsed with the same rules as API input.
type Seed struct {
	Hospitals    []SeedHospital    `yaml:"hospitals"`
	Services     []SeedService     `yaml:"services"`
	Admissions   []SeedAdmission   `yaml:"admissions"`
	Claims       []SeedClaim       `yaml:"claims"`
	Transactions []SeedTransaction `yaml:"transactions"`
}

type SeedHospital struct {
	ID        string        `yaml:"id"`
	Name      string        `yaml:"name"`
	Active    bool          `yaml:"active"`
	Services  []string      `yaml:"services"`
	Reference SeedReference `yaml:"reference"`
}

type SeedReference struct {
	Name       string         `yaml:"name"`
	Mobile     string         `yaml:"mobile"`
	Commission SeedCommission `yaml:"commission"`
}

type SeedCommission struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

type SeedService struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	Active     *bool     `yaml:"active"`
	PriceType  string    `yaml:"priceType"`
	FixedPrice *string   `yaml:"fixedPrice"`
	Slabs      *SeedSlab `yaml:"slabs"`
}

type SeedSlab struct {
	BasePrice              string `yaml:"basePrice"`
	BaseLimit              string `yaml:"baseLimit"`
	AdditionalPricePerSlab string `yaml:"additionalPricePerSlab"`
	SlabSize               string `yaml:"slabSize"`
}

type SeedAdmission struct {
	ID            string   `yaml:"id"`
	PatientName   string   `yaml:"patientName"`
	AdmissionDate string   `yaml:"admissionDate"`
	HospitalID    string   `yaml:"hospitalId"`
	Services      []string `yaml:"services"`
	PaymentStatus string   `yaml:"paymentStatus"`
}

type SeedClaim struct {
	ReferenceNo  string `yaml:"referenceNo"`
	HospitalID   string `yaml:"hospitalId"`
	ClaimNumber  string `yaml:"claimNumber"`
	PolicyNumber string `yaml:"policyNumber"`
	PatientName  string `yaml:"patientName"`
	Stage        string `yaml:"stage"`
	StatusDate   string `yaml:"statusDate"`
}

type SeedTransaction struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	Date        string `yaml:"date"`
	Amount      string `yaml:"amount"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

// ReadSeed parses a YAML fixture file.
func ReadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return seed, nil
}

// LoadFile builds a store from a YAML fixture file. Calendar dates in the file
// are days in loc; nil means UTC.
func LoadFile(path string, loc *time.Location) (*Store, error) {
	seed, err := ReadSeed(path)
	if err != nil {
		return nil, err
	}
	s := New()
	if err := s.Load(seed, loc); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the store contents with seed, reading calendar dates in loc.
func (s *Store) Load(seed Seed, loc *time.Location) error {
	next := New()
	for _, sh := range seed.Hospitals {
		h, err := sh.hospital()
		if err != nil {
			return err
		}
		if _, dup := next.hospitals[h.ID]; dup {
			return fmt.Errorf("duplicate hospital %s", h.ID)
		}
		next.hospitals[h.ID] = h
		next.hospitalOrder = append(next.hospitalOrder, h.ID)
	}
	for _, ss := range seed.Services {
		svc, err := ss.service()
		if err != nil {
			return err
		}
		next.services[svc.ID] = svc
	}
	for _, sa := range seed.Admissions {
		rec, err := sa.record(loc)
		if err != nil {
			return err
		}
		next.admissions = append(next.admissions, rec)
	}
	for _, sc := range seed.Claims {
		c, err := sc.claim(loc)
		if err != nil {
			return err
		}
		next.claims = append(next.claims, c)
	}
	for _, st := range seed.Transactions {
		t, err := st.transaction(loc)
		if err != nil {
			return err
		}
		next.transactions[t.ID] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hospitals = next.hospitals
	s.hospitalOrder = next.hospitalOrder
	s.services = next.services
	s.admissions = next.admissions
	s.claims = next.claims
	s.transactions = next.transactions
	return nil
}

func (sh SeedHospital) hospital() (billing.Hospital, error) {
	kind, err := commission.ParseKind(sh.Reference.Commission.Type)
	if err != nil {
		return billing.Hospital{}, fmt.Errorf("hospital %s: %w", sh.ID, err)
	}
	value, err := money.Parse(sh.Reference.Commission.Value)
	if err != nil {
		return billing.Hospital{}, fmt.Errorf("hospital %s commission: %w", sh.ID, err)
	}
	policy, err := commission.NewPolicy(kind, value)
	if err != nil {
		return billing.Hospital{}, fmt.Errorf("hospital %s: %w", sh.ID, err)
	}
	return billing.Hospital{
		ID:                   sh.ID,
		Name:                 sh.Name,
		Active:               sh.Active,
		AssociatedServiceIDs: append([]string(nil), sh.Services...),
		Reference: billing.Reference{
			Name:       sh.Reference.Name,
			Mobile:     sh.Reference.Mobile,
			Commission: policy,
		},
	}, nil
}

func (ss SeedService) service() (pricing.Service, error) {
	var fixed *decimal.Decimal
	if ss.FixedPrice != nil {
		d, err := money.Parse(*ss.FixedPrice)
		if err != nil {
			return pricing.Service{}, fmt.Errorf("service %s fixed price: %w", ss.ID, err)
		}
		fixed = &d
	}
	var slab *pricing.Slab
	if ss.Slabs != nil {
		parsed, err := ss.Slabs.slab()
		if err != nil {
			return pricing.Service{}, fmt.Errorf("service %s slabs: %w", ss.ID, err)
		}
		slab = &parsed
	}
	p, err := pricing.FromRecord(ss.PriceType, fixed, slab)
	if err != nil {
		return pricing.Service{}, fmt.Errorf("service %s: %w", ss.ID, err)
	}
	active := true
	if ss.Active != nil {
		active = *ss.Active
	}
	return pricing.Service{ID: ss.ID, Name: ss.Name, Pricing: p, Active: active}, nil
}

func (sl SeedSlab) slab() (pricing.Slab, error) {
	fields := []string{sl.BasePrice, sl.BaseLimit, sl.AdditionalPricePerSlab, sl.SlabSize}
	values := make([]decimal.Decimal, len(fields))
	for i, raw := range fields {
		d, err := money.Parse(raw)
		if err != nil {
			return pricing.Slab{}, err
		}
		values[i] = d
	}
	return pricing.Slab{
		BasePrice:              values[0],
		BaseLimit:              values[1],
		AdditionalPricePerSlab: values[2],
		SlabSize:               values[3],
	}, nil
}

func (sa SeedAdmission) record(loc *time.Location) (billing.UsageRecord, error) {
	at, err := common.ParseDateIn(sa.AdmissionDate, loc)
	if err != nil {
		return billing.UsageRecord{}, fmt.Errorf("admission %s: %w", sa.ID, err)
	}
	status, err := billing.ParsePaymentStatus(sa.PaymentStatus)
	if err != nil {
		return billing.UsageRecord{}, fmt.Errorf("admission %s: %w", sa.ID, err)
	}
	return billing.UsageRecord{
		ID:            sa.ID,
		PatientName:   sa.PatientName,
		AdmissionDate: at,
		HospitalID:    sa.HospitalID,
		ServiceIDs:    append([]string(nil), sa.Services...),
		PaymentStatus: status,
	}, nil
}

func (sc SeedClaim) claim(loc *time.Location) (claims.Claim, error) {
	at, err := common.ParseDateIn(sc.StatusDate, loc)
	if err != nil {
		return claims.Claim{}, fmt.Errorf("claim %s: %w", sc.ReferenceNo, err)
	}
	return claims.Claim{
		ReferenceNo:  sc.ReferenceNo,
		ClaimNumber:  sc.ClaimNumber,
		PolicyNumber: sc.PolicyNumber,
		PatientName:  sc.PatientName,
		HospitalID:   sc.HospitalID,
		Stage:        sc.Stage,
		StatusDate:   at,
	}, nil
}

func (st SeedTransaction) transaction(loc *time.Location) (ledger.Transaction, error) {
	typ, err := ledger.ParseType(st.Type)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", st.ID, err)
	}
	at, err := common.ParseDateIn(st.Date, loc)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", st.ID, err)
	}
	amount, err := money.Parse(st.Amount)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", st.ID, err)
	}
	t := ledger.Transaction{ID: st.ID, Type: typ, Date: at, Amount: amount, Description: st.Description, Category: st.Category}
	if err := t.Validate(); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: %w", st.ID, err)
	}
	return t, nil
}
