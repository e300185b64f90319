package e2e

import (
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite provides a test suite for end-to-end tests
type E2ETestSuite struct {
	suite.Suite
	pw       *playwright.Playwright
	browser  playwright.Browser
	page     playwright.Page
	expect   playwright.PlaywrightAssertions
	username string
	password string
}

// SetupSuite runs once before all tests
func (suite *E2ETestSuite) SetupSuite() {
	pw, err := playwright.Run()
	require.NoError(suite.T(), err, "could not launch playwright")
	suite.pw = pw

	browser, err := pw.Chromium.Launch()
	require.NoError(suite.T(), err, "could not launch chromium")
	suite.browser = browser

	suite.expect = playwright.NewPlaywrightAssertions()

	// A unique account per suite run keeps reruns against a stale
	// database from tripping the duplicate-username check.
	suite.username = fmt.Sprintf("e2e_%d", time.Now().UnixNano())
	suite.password = "pw123456"
}

// TearDownSuite runs once after all tests
func (suite *E2ETestSuite) TearDownSuite() {
	if suite.browser != nil {
		suite.browser.Close()
	}
	if suite.pw != nil {
		suite.pw.Stop()
	}
}

// SetupTest runs before each test
func (suite *E2ETestSuite) SetupTest() {
	page, err := suite.browser.NewPage()
	require.NoError(suite.T(), err, "could not create page")
	suite.page = page

	_, err = suite.page.Goto(appURL)
	require.NoError(suite.T(), err, "could not navigate to app")
}

// TearDownTest runs after each test
func (suite *E2ETestSuite) TearDownTest() {
	if suite.page != nil {
		suite.page.Close()
	}
}

func (suite *E2ETestSuite) register() {
	_, err := suite.page.Goto(appURL + "/#/register")
	require.NoError(suite.T(), err)

	err = suite.expect.Locator(suite.page.Locator(".register-form")).ToBeVisible()
	require.NoError(suite.T(), err, "register form not visible")

	err = suite.page.Locator("input[name=username]").Fill(suite.username)
	require.NoError(suite.T(), err, "failed to fill username")
	err = suite.page.Locator("input[name=password]").Fill(suite.password)
	require.NoError(suite.T(), err, "failed to fill password")
	err = suite.page.Locator("input[name=confirm]").Fill(suite.password)
	require.NoError(suite.T(), err, "failed to fill confirmation")

	err = suite.page.Locator(".register-btn").Click()
	require.NoError(suite.T(), err, "failed to click register")

	// Registration routes back to the login view.
	err = suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "did not land on login after registering")
}

func (suite *E2ETestSuite) login() {
	err := suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "login form not visible")

	err = suite.page.Locator("input[name=username]").Fill(suite.username)
	require.NoError(suite.T(), err, "failed to fill username")
	err = suite.page.Locator("input[name=password]").Fill(suite.password)
	require.NoError(suite.T(), err, "failed to fill password")

	err = suite.page.Locator(".login-btn").Click()
	require.NoError(suite.T(), err, "failed to click login")

	err = suite.expect.Locator(suite.page.Locator(".list-screen")).ToBeVisible()
	require.NoError(suite.T(), err, "did not reach list view after login")
}

func (suite *E2ETestSuite) TestCompleteUserFlow() {
	suite.register()
	suite.login()

	// Create a list.
	err := suite.page.Locator(".add-list-form input[name=listTitle]").Fill("Groceries")
	require.NoError(suite.T(), err, "failed to fill list title")
	err = suite.page.Locator(".add-list-btn").Click()
	require.NoError(suite.T(), err, "failed to add list")

	err = suite.expect.Locator(suite.page.Locator(".list-row")).ToHaveCount(1)
	require.NoError(suite.T(), err, "list row count mismatch")
	err = suite.expect.Locator(suite.page.Locator(".list-row .list-title")).ToHaveText("Groceries")
	require.NoError(suite.T(), err, "list title mismatch")

	// Open the list and add an item.
	err = suite.page.Locator(".list-row .list-title").Click()
	require.NoError(suite.T(), err, "failed to open list")

	err = suite.expect.Locator(suite.page.Locator(".item-screen")).ToBeVisible()
	require.NoError(suite.T(), err, "item view not visible")

	err = suite.page.Locator(".add-item-form input[name=description]").Fill("Buy milk")
	require.NoError(suite.T(), err, "failed to fill item description")
	err = suite.page.Locator(".add-item-btn").Click()
	require.NoError(suite.T(), err, "failed to add item")

	err = suite.expect.Locator(suite.page.Locator(".item-row")).ToHaveCount(1)
	require.NoError(suite.T(), err, "item row count mismatch")
	err = suite.expect.Locator(suite.page.Locator(".item-row .item-desc")).ToHaveText("Buy milk")
	require.NoError(suite.T(), err, "item description mismatch")
	err = suite.expect.Locator(suite.page.Locator(".item-row .item-status")).ToHaveText("pending")
	require.NoError(suite.T(), err, "new items start pending")

	// Back to lists, delete the list, items go with it.
	err = suite.page.Locator(".back-link").Click()
	require.NoError(suite.T(), err, "failed to navigate back")
	err = suite.page.Locator(".list-row .delete-btn").Click()
	require.NoError(suite.T(), err, "failed to delete list")

	err = suite.expect.Locator(suite.page.Locator(".list-row")).ToHaveCount(0)
	require.NoError(suite.T(), err, "list should be gone after delete")
}

func (suite *E2ETestSuite) TestAnonymousRedirectsToLogin() {
	_, err := suite.page.Goto(appURL + "/#/lists")
	require.NoError(suite.T(), err)

	// Without a session the guard routes to the login view.
	err = suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "anonymous user should land on login")
}

// TestE2ESuite runs the e2e test suite
func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
