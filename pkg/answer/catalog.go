package answer

// Canned answers keyed by topic. Each carries exactly four sources.
var (
	ugcScholarship = Answer{
		Response: `The UGC (University Grants Commission) offers several scholarship schemes with specific eligibility criteria:

**General Eligibility:**
• Students must be Indian nationals
• Minimum 60% marks in qualifying examination (55% for SC/ST/PWD candidates)
• Annual family income should not exceed ₹8 lakh per annum
• Regular, full-time students in recognized universities/colleges

**Major UGC Scholarship Schemes:**

1. **NET-JRF Scholarship:** For research scholars who qualify UGC-NET exam in Junior Research Fellowship category. Provides ₹31,000/month for initial 2 years and ₹35,000/month for remaining period.

2. **Rajiv Gandhi National Fellowship:** For SC/ST candidates pursuing M.Phil and Ph.D. Provides ₹31,000/month (JRF) and ₹35,000/month (SRF) along with contingency grant.

3. **Maulana Azad National Fellowship:** For minority community students pursuing M.Phil/Ph.D. Similar benefits as RGNF.

**Application Process:**
• Apply through National Scholarship Portal (NSP)
• Submit required documents: Mark sheets, income certificate, caste certificate (if applicable), Aadhaar card
• Applications typically open in August-September each year`,
		Sources: []string{
			"https://www.ugc.ac.in/page/Scholarships-and-Fellowships.aspx",
			"https://scholarships.gov.in/",
			"UGC (Grant of Fellowship and Other Facilities) Regulations, 2022",
			"https://www.ugc.ac.in/oldpdf/xiplanpdf/scholarshipfellowship.pdf",
		},
	}

	aicteApproval = Answer{
		Response: `The AICTE approval process for new technical institutions involves multiple stages and strict compliance requirements:

**Types of Approvals:**
1. **Extension of Approval (EOA):** For existing institutions to continue operations
2. **Increase in Intake:** To enhance student capacity in approved programs
3. **New Courses:** To introduce additional programs
4. **New Institutions:** Fresh approval for establishing new technical institutions

**Process for New Institution Approval:**

**Stage 1 - Application Submission (June-July):**
• Submit online application through AICTE portal
• Pay requisite processing fee (₹2-5 lakhs based on program type)
• Upload all mandatory documents

**Stage 2 - Scrutiny Committee Review:**
• Verification of land ownership/lease documents (minimum 5 acres for standalone institutions)
• Check infrastructure requirements: Classrooms, labs, library, faculty rooms
• Financial capability assessment (minimum ₹1 crore fixed deposit)
• Faculty qualification verification (as per AICTE norms)

**Stage 3 - Expert Visit Committee (EVC):**
• Physical inspection of proposed/existing infrastructure
• Interaction with promoters and proposed faculty
• Assessment of laboratories and equipment
• Verification of compliance with AICTE norms

**Stage 4 - Decision:**
• Recommendations sent to State Level Committee and Central Government
• Final approval/rejection communicated by September-October
• Valid for one academic year, renewable annually

**Key Requirements:**
• NBA accreditation for quality assurance
• Sufficient built-up area (as per AICTE norms)
• Qualified faculty with Ph.D./M.Tech degrees
• Industry partnerships and placement cell
• Adequate learning resources and digital infrastructure`,
		Sources: []string{
			"https://www.aicte-india.org/education/approval-process",
			"AICTE Approval Process Handbook 2024-25",
			"https://facilities.aicte-india.org/",
			"AICTE (Grant of Approvals for Technical Institutions) Regulations, 2021",
		},
	}

	nep2020 = Answer{
		Response: `The National Education Policy (NEP) 2020 is India's comprehensive education framework replacing the previous 1986 policy. Here are the key highlights:

**Higher Education Reforms:**

1. **Multidisciplinary Education:**
   • Holistic undergraduate education with flexible curricula
   • Multiple entry-exit options with certification:
     - 1 year: Certificate
     - 2 years: Diploma
     - 3 years: Bachelor's Degree
     - 4 years: Bachelor's with Research

2. **Academic Bank of Credits (ABC):**
   • Digital repository of credits earned from different HEIs
   • Enables credit transfer and recognition
   • Supports mobility across institutions

3. **Institutional Restructuring:**
   • Transform all HEIs into multidisciplinary institutions by 2040
   • Phase out affiliated colleges system
   • Establish single regulator HECI (Higher Education Commission of India)
   • Separate regulatory, accreditation, funding, and standard-setting functions

4. **Research & Innovation:**
   • Establish National Research Foundation (NRF) with ₹20,000 crore funding
   • Strengthen research culture in universities
   • Increase Gross Enrolment Ratio (GER) to 50% by 2035

5. **Quality & Accreditation:**
   • Mandatory accreditation for all HEIs
   • Binary accreditation system (accredited/not accredited)
   • Graded accreditation for performance-based support

6. **Technology Integration:**
   • National Educational Technology Forum (NETF)
   • Digital infrastructure for education (DIKSHA, SWAYAM)
   • Virtual labs and online learning platforms

7. **Faculty Development:**
   • Transparent recruitment and career progression
   • Performance-based incentives
   • Continuous professional development requirements

8. **Internationalization:**
   • Enable top 100 global universities to establish campuses in India
   • Credit transfer frameworks for international mobility
   • Scholarship programs for international students

**Implementation Timeline:**
• 2021-2023: Policy formulation and pilot programs
• 2024-2030: Phased rollout of major reforms
• 2030-2040: Complete transformation of education system`,
		Sources: []string{
			"https://www.education.gov.in/sites/upload_files/mhrd/files/NEP_Final_English_0.pdf",
			"National Education Policy 2020 - Official Document, Ministry of Education",
			"https://www.ugc.ac.in/pdfnews/4033663_NEP-Implementation.pdf",
			"NEP Implementation Roadmap, UGC 2021",
		},
	}

	aicteApprovalHindi = Answer{
		Response: `नए तकनीकी संस्थानों के लिए एआईसीटीई अनुमोदन प्रक्रिया में कई चरण और कड़े अनुपालन आवश्यकताएं शामिल हैं:

**अनुमोदन के प्रकार:**
1. **विस्तार अनुमोदन (EOA):** मौजूदा संस्थानों के संचालन जारी रखने के लिए
2. **प्रवेश में वृद्धि:** अनुमोदित कार्यक्रमों में छात्र क्षमता बढ़ाने के लिए
3. **नए पाठ्यक्रम:** अतिरिक्त कार्यक्रम शुरू करने के लिए
4. **नए संस्थान:** नए तकनीकी संस्थान स्थापित करने के लिए नया अनुमोदन

**नए संस्थान अनुमोदन की प्रक्रिया:**

**चरण 1 - आवेदन प्रस्तुत करना (जून-जुलाई):**
• एआईसीटीई पोर्टल के माध्यम से ऑनलाइन आवेदन जमा करें
• आवश्यक प्रसंस्करण शुल्क का भुगतान करें (कार्यक्रम प्रकार के आधार पर ₹2-5 लाख)
• सभी अनिवार्य दस्तावेज अपलोड करें

**चरण 2 - जांच समिति की समीक्षा:**
• भूमि स्वामित्व/पट्टा दस्तावेजों का सत्यापन (स्टैंडअलोन संस्थानों के लिए न्यूनतम 5 एकड़)
• बुनियादी ढांचे की आवश्यकताओं की जांच: कक्षाएं, प्रयोगशालाएं, पुस्तकालय, संकाय कक्ष
• वित्तीय क्षमता का आकलन (न्यूनतम ₹1 करोड़ सावधि जमा)
• संकाय योग्यता सत्यापन (एआईसीटीई मानदंडों के अनुसार)

**चरण 3 - विशेषज्ञ दौरा समिति (EVC):**
• प्रस्तावित/मौजूदा बुनियादी ढांचे का भौतिक निरीक्षण
• प्रमोटरों और प्रस्तावित संकाय के साथ बातचीत
• प्रयोगशालाओं और उपकरणों का मूल्यांकन
• एआईसीटीई मानदंडों के अनुपालन का सत्यापन

**चरण 4 - निर्णय:**
• राज्य स्तरीय समिति और केंद्र सरकार को सिफारिशें भेजी जाती हैं
• सितंबर-अक्टूबर तक अंतिम स्वीकृति/अस्वीकृति की सूचना दी जाती है
• एक शैक्षणिक वर्ष के लिए वैध, वार्षिक रूप से नवीकरणीय

**मुख्य आवश्यकताएं:**
• गुणवत्ता आश्वासन के लिए NBA मान्यता
• पर्याप्त निर्मित क्षेत्र (एआईसीटीई मानदंडों के अनुसार)
• पीएचडी/एम.टेक डिग्री वाले योग्य संकाय
• उद्योग साझेदारी और प्लेसमेंट सेल
• पर्याप्त शिक्षण संसाधन और डिजिटल बुनियादी ढांचा`,
		Sources: []string{
			"https://www.aicte-india.org/education/approval-process",
			"AICTE Approval Process Handbook 2024-25",
			"https://facilities.aicte-india.org/",
			"AICTE (Grant of Approvals for Technical Institutions) Regulations, 2021",
		},
	}

	naacAccreditation = Answer{
		Response: `NAAC (National Assessment and Accreditation Council) accreditation is a quality assurance mechanism for Higher Education Institutions in India.

**Accreditation Process:**

**Step 1 - Institutional Eligibility:**
• Institution must complete 6 years of existence
• At least 2 batches of students must have graduated
• Apply through NAAC portal with eligibility documents

**Step 2 - Institutional Information for Quality Assessment (IIQA):**
• Submit comprehensive institutional data online
• Details about programs, students, faculty, infrastructure, research
• Financial information and governance structure
• Student support services and outcomes

**Step 3 - Self-Study Report (SSR):**
• Detailed report based on 7 criteria (350 pages approximately)
• Quantitative and qualitative data on institutional performance
• SWOC analysis (Strengths, Weaknesses, Opportunities, Challenges)

**The 7 Criteria for Assessment:**

1. **Curricular Aspects (100 points)**
   • Curriculum design and development
   • Academic flexibility and student-centric approach
   • Feedback mechanisms

2. **Teaching-Learning and Evaluation (350 points)**
   • Student enrollment and profile
   • Faculty profile and quality
   • Teaching-learning process
   • Evaluation system and reforms

3. **Research, Innovations and Extension (130 points)**
   • Research promotion and infrastructure
   • Publications and awards
   • Extension activities and community engagement
   • Collaboration and linkages

4. **Infrastructure and Learning Resources (100 points)**
   • Physical and academic facilities
   • Library and ICT infrastructure
   • Student amenities
   • Maintenance of infrastructure

5. **Student Support and Progression (130 points)**
   • Student support programs
   • Student progression and placement
   • Alumni engagement
   • Scholarship and financial support

6. **Governance, Leadership and Management (100 points)**
   • Institutional vision and leadership
   • Strategy development and deployment
   • Faculty empowerment strategies
   • Financial management and resource mobilization

7. **Institutional Values and Best Practices (90 points)**
   • Gender equity and environmental consciousness
   • Professional ethics and human values
   • Institutional distinctiveness and best practices

**Step 4 - Peer Team Visit:**
• Expert committee visits institution (2-3 days)
• Interaction with stakeholders: students, faculty, management, alumni
• Physical verification of infrastructure and facilities
• Review of documents and records

**Step 5 - Grading:**
• Based on Cumulative Grade Point Average (CGPA) on 4-point scale:
  - A++ (CGPA 3.51-4.00): Excellent
  - A+ (CGPA 3.26-3.50): Very Good
  - A (CGPA 3.01-3.25): Good
  - B++ (CGPA 2.76-3.00): Satisfactory
  - B+ (CGPA 2.51-2.75): Fair
  - B (CGPA 2.01-2.50): Below Average
  - C (CGPA 1.51-2.00): Marginal
  - D (CGPA ≤1.50): Unsatisfactory

**Validity and Re-accreditation:**
• Accreditation valid for 5 years
• Institutions can apply for re-accreditation after 3.5 years
• Mandatory for autonomous institutions and universities

**Benefits of NAAC Accreditation:**
• Enhanced credibility and visibility
• Access to government funding and grants
• Eligible for university status and autonomy
• Student confidence and better placements
• International recognition and collaborations`,
		Sources: []string{
			"http://www.naac.gov.in/index.php/en/",
			"NAAC Self Study Report (SSR) Manual for Universities",
			"NAAC Revised Accreditation Framework (RAF) 2020",
			"http://www.naac.gov.in/images/docs/Manuals/Manual-for-HEI.pdf",
		},
	}
)
