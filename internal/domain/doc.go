// Package domain models OWID/WUENIC global vaccination coverage data.
//
// # Data Source
//
// Coverage estimates originate from the WHO/UNICEF Estimates of National
// Immunization Coverage (WUENIC), republished by Our World in Data as a
// grapher CSV at
// https://ourworldindata.org/grapher/global-vaccination-coverage.csv.
// The payload is wide: one row per (Entity, Year) with one column per
// antigen, using column short names of the form
//
//	coverage__<antigen>_vaccinated_share_of_one_year_olds
//
// e.g. coverage__dtp3_vaccinated_share_of_one_year_olds. [Melt] tidies this
// into one record per (country, antigen, year) and [AntigenFromColumn]
// reduces the short name to the bare antigen code ("DTP3", "MCV1", "POL3").
//
// # Conventions
//
//   - Values are percentages of the target population (one-year-olds for most
//     antigens), 0-100.
//   - A blank cell means no estimate was published for that country/year; it
//     is dropped during the melt rather than stored as zero.
//   - Years outside a sanity window (1980-2100 by default) are filtered out;
//     WUENIC estimates start in 1980.
//
// # Campaign Analysis
//
// [AnalyzeCampaign] compares mean coverage before and after a campaign start
// year using Welch's two-sample t-test with Welch-Satterthwaite degrees of
// freedom, plus 95% confidence intervals on both means. At least two points
// are required on each side; otherwise the result is marked inconclusive.
package domain
