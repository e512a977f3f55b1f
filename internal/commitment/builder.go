package commitment

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/deedscope/deedscope/internal/model"
)

// unknownOwner is the vesting sentinel when no chain could be established.
const unknownOwner = "Owner of record (unknown - unable to verify from available records)"

// standardExceptions are the boilerplate Schedule B Part II items carried
// on every commitment.
var standardExceptions = []string{
	"Rights or claims of parties in possession not shown by the public records.",
	"Easements, or claims of easements, not shown by the public records.",
	"Encroachments, overlaps, boundary line disputes, or other matters which would be disclosed by an accurate survey and inspection of the premises.",
	"Any lien, or right to a lien, for services, labor, or material heretofore or hereafter furnished, imposed by law and not shown by the public records.",
	"Taxes or special assessments which are not shown as existing liens by the public records.",
}

// Input is everything the builder consumes. It is the pipeline's extracted
// facts; the builder itself makes no external calls.
type Input struct {
	Address          string
	LegalDescription string
	EffectiveDate    time.Time
	Chain            []model.OwnershipTransfer
	Liens            []model.Lien
	Exceptions       []model.TitleException
}

// Build assembles Schedule A and Schedule B from extracted facts.
// Identical inputs yield identical schedules except the commitment number,
// which is freshly generated per call.
func Build(in Input) (model.ScheduleA, model.ScheduleB) {
	return BuildNumbered(in, NewCommitmentNumber(in.EffectiveDate))
}

// BuildNumbered is Build with a caller-supplied commitment number.
func BuildNumbered(in Input, commitmentNumber string) (model.ScheduleA, model.ScheduleB) {
	scheduleA := model.ScheduleA{
		CommitmentNumber: commitmentNumber,
		EffectiveDate:    in.EffectiveDate.Format("2006-01-02"),
		PropertyAddress:  in.Address,
		VestedOwner:      vestedOwner(in.Chain),
		LegalDescription: legalDescription(in.LegalDescription, in.Address),
	}

	scheduleB := model.ScheduleB{
		Requirements: buildRequirements(in.Liens, in.Exceptions),
		Exceptions:   buildExceptions(in.Chain, in.Liens, in.Exceptions),
	}

	return scheduleA, scheduleB
}

// NewCommitmentNumber generates a date-prefixed commitment number.
// Uniqueness is not enforced beyond the random suffix.
func NewCommitmentNumber(effective time.Time) string {
	return fmt.Sprintf("DC-%s-%06d", effective.Format("20060102"), rand.Intn(1_000_000))
}

func vestedOwner(chain []model.OwnershipTransfer) string {
	if len(chain) == 0 {
		return unknownOwner
	}
	return chain[len(chain)-1].Grantee
}

func legalDescription(supplied, address string) string {
	if supplied != "" {
		return supplied
	}
	return fmt.Sprintf("The land referred to in this commitment is commonly known as %s. A full legal description was not available from the records examined.", address)
}

// buildRequirements assembles Schedule B Part I: one item per active lien,
// one per curable exception, plus the always-present closing items.
func buildRequirements(liens []model.Lien, exceptions []model.TitleException) []model.Requirement {
	var reqs []model.Requirement
	n := 0
	next := func(description, relatesTo string) {
		n++
		reqs = append(reqs, model.Requirement{
			Number:      n,
			Description: description,
			RelatesTo:   relatesTo,
		})
	}

	for _, lien := range liens {
		if lien.Status != model.LienStatusActive {
			continue
		}
		desc := fmt.Sprintf("Satisfaction or release of the %s lien held by %s", lien.Type, lien.Claimant)
		if lien.Amount != "" {
			desc += fmt.Sprintf(" in the amount of %s", lien.Amount)
		}
		next(desc+".", lien.Claimant)
	}

	for _, exc := range exceptions {
		if exc.Type != model.ExceptionCurable {
			continue
		}
		remedy := exc.Remedy
		if remedy == "" {
			remedy = "Resolution of this matter to the satisfaction of the Company"
		}
		next(fmt.Sprintf("%s: %s.", exc.Description, remedy), exc.Description)
	}

	next("Payment of all taxes, assessments, and charges against the land which are due and payable.", "")
	next("Execution and delivery of a properly executed deed conveying the land to the proposed insured.", "")

	return reqs
}

// buildExceptions assembles Schedule B Part II: the fixed standard items,
// then property-specific special items in a stable order.
func buildExceptions(chain []model.OwnershipTransfer, liens []model.Lien, exceptions []model.TitleException) []model.ScheduleBException {
	var out []model.ScheduleBException
	n := 0
	next := func(kind model.ExceptionKind, description string, removable bool) {
		n++
		out = append(out, model.ScheduleBException{
			Number:      n,
			Kind:        kind,
			Description: description,
			Removable:   removable,
		})
	}

	for _, desc := range standardExceptions {
		next(model.ExceptionStandard, desc, false)
	}

	for _, lien := range liens {
		desc := fmt.Sprintf("%s lien in favor of %s", lien.Type, lien.Claimant)
		if lien.Amount != "" {
			desc += fmt.Sprintf(", in the amount of %s", lien.Amount)
		}
		if lien.DateRecorded != "" {
			desc += fmt.Sprintf(", recorded %s", lien.DateRecorded)
		}
		if lien.Status == model.LienStatusReleased {
			desc += " (released of record)"
		}
		next(model.ExceptionSpecial, desc+".", lien.Status == model.LienStatusReleased)
	}

	for _, exc := range exceptions {
		if exc.Type != model.ExceptionFatal && exc.Type != model.ExceptionInfo {
			continue
		}
		next(model.ExceptionSpecial, exc.Description+".", false)
	}

	for _, gap := range model.DetectChainGaps(chain) {
		next(model.ExceptionSpecial, fmt.Sprintf(
			"Apparent gap in the chain of title between transfer %d (grantee %s) and transfer %d (grantor %s); matters arising during the unexplained interval.",
			gap.PriorIndex+1, gap.PriorGrantee, gap.NextIndex+1, gap.NextGrantor), false)
	}

	return out
}
