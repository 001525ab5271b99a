package differ

import (
	"sort"

	"github.com/schemadrift/schemadrift/internal/errors"
	"github.com/schemadrift/schemadrift/internal/models"
)

// Diff computes the structural diff between two versions of one node.
// Exactly one side may be nil: old nil means the schema was added, new
// nil means it was removed. A removal is breaking regardless of content.
func Diff(old, new *models.Node) (*models.SchemaDiff, error) {
	if old == nil && new == nil {
		return nil, errors.ValidationError("diff requires at least one of old or new")
	}

	if old == nil {
		diff := &models.SchemaDiff{
			NodeID:     new.ID,
			NodeName:   new.Name,
			ChangeType: models.ChangeTypeAdded,
			Changes:    changeList(old, new),
		}
		diff.Breaking = anyBreaking(diff.Changes)
		return diff, nil
	}

	if new == nil {
		return &models.SchemaDiff{
			NodeID:     old.ID,
			NodeName:   old.Name,
			ChangeType: models.ChangeTypeRemoved,
			Breaking:   true,
			Changes:    []models.SchemaChange{},
		}, nil
	}

	if old.FileHash == new.FileHash {
		return &models.SchemaDiff{
			NodeID:     new.ID,
			NodeName:   new.Name,
			ChangeType: models.ChangeTypeUnchanged,
			Changes:    []models.SchemaChange{},
		}, nil
	}

	diff := &models.SchemaDiff{
		NodeID:     new.ID,
		NodeName:   new.Name,
		ChangeType: models.ChangeTypeModified,
		Changes:    changeList(old, new),
	}
	diff.Breaking = anyBreaking(diff.Changes)
	return diff, nil
}

// DiffAll diffs the union of two node maps, retaining only entries that
// actually changed
func DiffAll(oldMap, newMap map[string]*models.Node) ([]*models.SchemaDiff, error) {
	ids := make(map[string]bool, len(oldMap)+len(newMap))
	for id := range oldMap {
		ids[id] = true
	}
	for id := range newMap {
		ids[id] = true
	}

	ordered := make([]string, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	var diffs []*models.SchemaDiff
	for _, id := range ordered {
		diff, err := Diff(oldMap[id], newMap[id])
		if err != nil {
			return nil, err
		}
		if diff.ChangeType == models.ChangeTypeUnchanged {
			continue
		}
		diffs = append(diffs, diff)
	}
	return diffs, nil
}

// changeList emits field-level changes between the two versions. old may
// be nil (added schema); new is never nil here.
func changeList(old, new *models.Node) []models.SchemaChange {
	changes := []models.SchemaChange{}

	var oldProps []models.Property
	if old != nil {
		oldProps = old.Properties
	}

	oldByName := make(map[string]*models.Property, len(oldProps))
	for i := range oldProps {
		oldByName[oldProps[i].Name] = &oldProps[i]
	}
	newByName := make(map[string]*models.Property, len(new.Properties))
	for i := range new.Properties {
		newByName[new.Properties[i].Name] = &new.Properties[i]
	}

	// removals first, in old declaration order
	for i := range oldProps {
		prop := &oldProps[i]
		if _, ok := newByName[prop.Name]; !ok {
			changes = append(changes, models.SchemaChange{
				Kind:     models.ChangeFieldRemoved,
				Field:    prop.Name,
				Old:      prop.Type,
				Breaking: true,
				Detail:   "field removed",
			})
		}
	}

	// additions and in-place changes, in new declaration order
	for i := range new.Properties {
		prop := &new.Properties[i]
		oldProp, ok := oldByName[prop.Name]
		if !ok {
			changes = append(changes, models.SchemaChange{
				Kind:     models.ChangeFieldAdded,
				Field:    prop.Name,
				New:      prop.Type,
				Breaking: prop.Required,
				Detail:   addedDetail(prop),
			})
			continue
		}

		if oldProp.Type != prop.Type {
			changes = append(changes, models.SchemaChange{
				Kind:     models.ChangeFieldTypeChanged,
				Field:    prop.Name,
				Old:      oldProp.Type,
				New:      prop.Type,
				Breaking: true,
				Detail:   "type changed",
			})
		}
		if oldProp.Required != prop.Required {
			changes = append(changes, models.SchemaChange{
				Kind:     models.ChangeFieldRequiredChanged,
				Field:    prop.Name,
				Old:      requiredLabel(oldProp.Required),
				New:      requiredLabel(prop.Required),
				Breaking: prop.Required,
				Detail:   requiredDetail(prop.Required),
			})
		}
	}

	if old != nil && old.Intent != new.Intent {
		changes = append(changes, models.SchemaChange{
			Kind:     models.ChangeIntentChanged,
			Old:      old.Intent,
			New:      new.Intent,
			Breaking: false,
			Detail:   "declared intent changed",
		})
	}

	if new.Type == models.NodeTypeEnum {
		changes = append(changes, enumChanges(old, new)...)
	}

	return changes
}

// enumChanges compares permitted value sets. Removing a value is
// breaking; adding one is not.
func enumChanges(old, new *models.Node) []models.SchemaChange {
	var oldValues []string
	if old != nil {
		oldValues = old.EnumValues()
	}
	newValues := new.EnumValues()

	oldSet := make(map[string]bool, len(oldValues))
	for _, v := range oldValues {
		oldSet[v] = true
	}
	newSet := make(map[string]bool, len(newValues))
	for _, v := range newValues {
		newSet[v] = true
	}

	var changes []models.SchemaChange
	for _, v := range oldValues {
		if !newSet[v] {
			changes = append(changes, models.SchemaChange{
				Kind:     models.ChangeEnumValueChanged,
				Field:    v,
				Old:      v,
				Breaking: true,
				Detail:   "enum value removed",
			})
		}
	}
	for _, v := range newValues {
		if !oldSet[v] {
			changes = append(changes, models.SchemaChange{
				Kind:     models.ChangeEnumValueChanged,
				Field:    v,
				New:      v,
				Breaking: false,
				Detail:   "enum value added",
			})
		}
	}
	return changes
}

func anyBreaking(changes []models.SchemaChange) bool {
	for _, c := range changes {
		if c.Breaking {
			return true
		}
	}
	return false
}

func addedDetail(prop *models.Property) string {
	if prop.Required {
		return "required field added"
	}
	return "optional field added"
}

func requiredLabel(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}

func requiredDetail(nowRequired bool) string {
	if nowRequired {
		return "field became required"
	}
	return "field became optional"
}
