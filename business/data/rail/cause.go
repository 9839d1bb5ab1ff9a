package rail

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CauseLevel is the depth of a delay cause category
type CauseLevel int

const (
	CategoryLevel CauseLevel = iota + 1
	DetailedCategoryLevel
	ThirdCategoryLevel
)

// CauseRef references a delay cause category at up to three levels, from broad to specific.
// Detailed and third levels are nil when the feed did not record them
type CauseRef struct {
	CategoryCode           string `json:"category_code"`
	CategoryCodeId         int    `json:"category_code_id"`
	DetailedCategoryCode   string `json:"detailed_category_code,omitempty"`
	DetailedCategoryCodeId *int   `json:"detailed_category_code_id,omitempty"`
	ThirdCategoryCode      string `json:"third_category_code,omitempty"`
	ThirdCategoryCodeId    *int   `json:"third_category_code_id,omitempty"`
}

// MostSpecificCode returns the code of the deepest level present
func (c *CauseRef) MostSpecificCode() string {
	if c.ThirdCategoryCode != "" {
		return c.ThirdCategoryCode
	}
	if c.DetailedCategoryCode != "" {
		return c.DetailedCategoryCode
	}
	return c.CategoryCode
}

// Cause is a delay cause with the minutes of delay attributed to it
type Cause struct {
	Name    string `json:"name"`
	Minutes int    `json:"minutes"`
}

// CauseCategory is one entry of the cause code metadata table
type CauseCategory struct {
	Level CauseLevel `db:"level" json:"level" yaml:"level" validate:"min=1,max=3"`
	Id    int        `db:"id" json:"id" yaml:"id"`
	Code  string     `db:"code" json:"code" yaml:"code"`
	Name  string     `db:"name" json:"name" yaml:"name" validate:"required"`
}

// GetCauseCategories retrieves all cause categories
func GetCauseCategories(db *sqlx.DB) ([]CauseCategory, error) {
	query := "select level, id, code, name from cause_category order by level, id"
	var results []CauseCategory
	err := db.Select(&results, query)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve cause categories: %w", err)
	}
	return results, nil
}

// RecordCauseCategories replaces the stored cause categories in a single transaction
func RecordCauseCategories(db *sqlx.DB, categories []CauseCategory) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	_, err = tx.Exec("delete from cause_category")
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if len(categories) > 0 {
		statementString := "insert into cause_category (level, id, code, name) values (:level, :id, :code, :name)"
		_, err = tx.NamedExec(tx.Rebind(statementString), categories)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
