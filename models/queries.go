package models

import (
	"gorm.io/gorm"
)

// BrowseBook is an OfferedBook row annotated with whether the viewing user
// has already sent an exchange request for it.
type BrowseBook struct {
	OfferedBook
	AlreadyRequested bool `json:"already_requested" gorm:"->"`
}

// BrowseResult tags whether the listing was narrowed to the viewer's areas.
// Anonymous viewers get the unfiltered catalog with the annotation
// constantly false.
type BrowseResult struct {
	Filtered bool         `json:"filtered"`
	Areas    []string     `json:"areas,omitempty"`
	Books    []BrowseBook `json:"books"`
}

// UserAreas returns the area codes of the user's locations.
func UserAreas(db *gorm.DB, userID uint) ([]string, error) {
	var areas []string
	err := db.Model(&UserLocation{}).
		Where("user_id = ?", userID).
		Pluck("area", &areas).Error
	return areas, err
}

// alreadyRequestedSubquery builds the EXISTS clause matching an exchange
// request from the viewer against the offered book's denormalized fields.
func alreadyRequestedSubquery(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Model(&ExchangeRequest{}).
		Select("1").
		Where("exchange_requests.from_user_id = ?", viewerID).
		Where("exchange_requests.to_user_id = offered_books.user_id").
		Where("exchange_requests.book_title = offered_books.title").
		Where("exchange_requests.book_author = offered_books.author")
}

// OfferedForUser returns books available in the viewer's locations, excluding
// the viewer's own, annotated with already_requested. Port of the
// OfferedBookManager.for_user query. A nil viewer yields the anonymous,
// unfiltered listing.
func OfferedForUser(db *gorm.DB, viewer *User) (*BrowseResult, error) {
	if viewer == nil {
		var books []BrowseBook
		err := db.Model(&OfferedBook{}).
			Select("offered_books.*, ? AS already_requested", false).
			Order("offered_books.created_at DESC").
			Find(&books).Error
		if err != nil {
			return nil, err
		}
		return &BrowseResult{Filtered: false, Books: books}, nil
	}

	areas, err := UserAreas(db, viewer.ID)
	if err != nil {
		return nil, err
	}

	books := []BrowseBook{}
	if len(areas) > 0 {
		err = db.Model(&OfferedBook{}).
			Select("DISTINCT offered_books.*, EXISTS(?) AS already_requested",
				alreadyRequestedSubquery(db, viewer.ID)).
			Joins("JOIN user_locations ul ON ul.user_id = offered_books.user_id").
			Where("ul.area IN ?", areas).
			Where("offered_books.user_id <> ?", viewer.ID).
			Order("offered_books.created_at DESC").
			Find(&books).Error
		if err != nil {
			return nil, err
		}
	}

	return &BrowseResult{Filtered: true, Areas: areas, Books: books}, nil
}

// OfferedForProfile returns the books a profile owner offers. When someone
// else is viewing, rows carry the already_requested annotation; owners see
// their own books with the annotation false.
func OfferedForProfile(db *gorm.DB, ownerID uint, viewer *User) ([]BrowseBook, error) {
	q := db.Model(&OfferedBook{}).
		Where("offered_books.user_id = ?", ownerID).
		Order("offered_books.created_at ASC")

	if viewer != nil && viewer.ID != ownerID {
		q = q.Select("offered_books.*, EXISTS(?) AS already_requested",
			alreadyRequestedSubquery(db, viewer.ID))
	} else {
		q = q.Select("offered_books.*, ? AS already_requested", false)
	}

	var books []BrowseBook
	err := q.Find(&books).Error
	return books, err
}

// RecentSentBy returns the user's most recent outgoing exchange requests.
func RecentSentBy(db *gorm.DB, userID uint, limit int) ([]ExchangeRequest, error) {
	var reqs []ExchangeRequest
	err := db.Where("from_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

// RecentReceivedBy returns the user's most recent incoming exchange requests.
func RecentReceivedBy(db *gorm.DB, userID uint, limit int) ([]ExchangeRequest, error) {
	var reqs []ExchangeRequest
	err := db.Where("to_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}
